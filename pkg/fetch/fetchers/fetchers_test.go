package fetchers

import (
	"errors"
	"slices"
	"testing"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		fetcher  string
		options  string
		wantErr  error
		wantCode apperrors.Code
	}{
		{"file", "FileFetcher", "url: https://example.org/INDEX\n", nil, ""},
		{"repodata", "RepodataFetcher", "url: https://example.org/repo/\n", nil, ""},
		{"git", "GitFetcher", "url: https://example.org/repo.git\n", nil, ""},
		{"unknown name", "FtpFetcher", "url: ftp://example.org/\n", ErrInvalidFetcherName, apperrors.ErrCodeInvalidFetcher},
		{"wrong case", "filefetcher", "url: https://example.org/\n", ErrInvalidFetcherName, apperrors.ErrCodeInvalidFetcher},
		{"bad options", "FileFetcher", "url: [1, 2]\n", nil, apperrors.ErrCodeInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Create(tt.fetcher, []byte(tt.options))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Create() error: %v", err)
				}
				if f == nil {
					t.Fatal("Create() returned nil fetcher")
				}
				return
			}
			if err == nil {
				t.Fatal("Create() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if got := apperrors.GetCode(err); got != tt.wantCode {
				t.Errorf("GetCode() = %v, want %v", got, tt.wantCode)
			}
		})
	}
}

func TestNames(t *testing.T) {
	want := []string{"FileFetcher", "GitFetcher", "RepodataFetcher"}
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

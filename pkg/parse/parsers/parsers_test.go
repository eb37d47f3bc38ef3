package parsers

import (
	"errors"
	"slices"
	"testing"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		parser   string
		options  string
		wantErr  error
		wantCode apperrors.Code
	}{
		{"freebsd", "FreeBsdParser", "", nil, ""},
		{"stalix", "StalIxParser", "", nil, ""},
		{"tincan", "TinCanParser", "exclude: [attic/]\n", nil, ""},
		{"yacp", "YacpParser", "{}\n", nil, ""},
		{"repodata", "RepodataParser", "disttags: [fc]\nallow_bin: false\n", nil, ""},
		{"unknown name", "DebianParser", "", ErrInvalidParserName, apperrors.ErrCodeInvalidParser},
		{"wrong case", "freebsdparser", "", ErrInvalidParserName, apperrors.ErrCodeInvalidParser},
		{"options for optionless parser", "FreeBsdParser", "strict: true\n", nil, apperrors.ErrCodeInvalidOptions},
		{"mistyped option", "RepodataParser", "allow_src: maybe\n", nil, apperrors.ErrCodeInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Create(tt.parser, []byte(tt.options))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Create() error: %v", err)
				}
				if p == nil {
					t.Fatal("Create() returned nil parser")
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
			if !apperrors.IsConfig(err) {
				t.Errorf("IsConfig(%v) = false, want true", err)
			}
		})
	}
}

func TestNames(t *testing.T) {
	want := []string{"FreeBsdParser", "RepodataParser", "StalIxParser", "TinCanParser", "YacpParser"}
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

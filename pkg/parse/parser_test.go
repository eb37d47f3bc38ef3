package parse

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
)

func TestEachLine(t *testing.T) {
	input := "a\nb\n\nbad\nc"
	var seen []string
	errBad := errors.New("bad line")

	err := EachLine(strings.NewReader(input), func(line string) error {
		if line == "bad" {
			return errBad
		}
		seen = append(seen, line)
		return nil
	})

	if !errors.Is(err, errBad) {
		t.Fatalf("EachLine() error = %v, want %v", err, errBad)
	}
	if got := apperrors.UserMessage(err); got != "on line 4: bad line" {
		t.Errorf("UserMessage() = %q, want %q", got, "on line 4: bad line")
	}
	if strings.Join(seen, "|") != "a|b|" {
		t.Errorf("seen = %q", seen)
	}
}

func TestAnnotate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Code
	}{
		{"validation", ErrEmptyVersion, apperrors.ErrCodeInvalidRecord},
		{"format", errors.New("unexpected token"), apperrors.ErrCodeInvalidFormat},
		{"already coded", apperrors.New(apperrors.ErrCodeStorage, "disk"), apperrors.ErrCodeStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Annotate(tt.err, "entry #%d", 2)
			if code := apperrors.GetCode(got); code != tt.want {
				t.Errorf("GetCode() = %v, want %v", code, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("Annotate() lost cause %v", tt.err)
			}
		})
	}
	if Annotate(nil, "x") != nil {
		t.Error("Annotate(nil) should be nil")
	}
}

func TestFindFactory(t *testing.T) {
	all := []*Factory{{Name: "FreeBsdParser"}, {Name: "YacpParser"}}
	if f := FindFactory("YacpParser", all); f == nil || f.Name != "YacpParser" {
		t.Errorf("FindFactory() = %v", f)
	}
	if f := FindFactory("Nope", all); f != nil {
		t.Errorf("FindFactory() = %v, want nil", f)
	}
}

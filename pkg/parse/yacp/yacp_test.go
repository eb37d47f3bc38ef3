package yacp

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/parse"
)

const fixture = `{
  "repository_name": "yacp",
  "num_packages": 3,
  "timestamp": 1700000000,
  "packages": [
    {
      "name": "libfoo",
      "version": "1.2-1",
      "category": ["Libs", "Devel"],
      "summary": "Foo library",
      "homepage": "https://foo.example.org/",
      "subpackages": [
        {"name": "libfoo1", "category": ["Libs"]},
        {"name": "libfoo-devel", "category": ["Devel"]}
      ],
      "maintainers": ["Jane Doe <jane@example.org>"]
    },
    {
      "name": "bar",
      "version": "0.9-2",
      "category": ["Utils"],
      "summary": "Bar tool",
      "homepage": "",
      "subpackages": [{"name": "bar", "category": ["Utils"]}],
      "maintainers": []
    },
    {
      "name": "baz",
      "version": "3.0-1",
      "category": [],
      "summary": "",
      "homepage": "https://baz.example.org/",
      "subpackages": [],
      "maintainers": []
    }
  ]
}`

func parseFixture(t *testing.T, content string) (*parse.Accumulator, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/state", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	var acc parse.Accumulator
	err := (&Parser{Fs: fs}).Parse("/state", &acc)
	return &acc, err
}

func TestParse(t *testing.T) {
	acc, err := parseFixture(t, fixture)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(acc.Records) != 3 {
		t.Fatalf("len(Records) = %d, want 3", len(acc.Records))
	}

	foo := acc.Records[0]
	if foo.ProjectNameSeed != "libfoo" || foo.Version != "1.2-1" || foo.Summary != "Foo library" {
		t.Errorf("libfoo = %+v", foo)
	}
	if got := strings.Join(foo.BinNames, ","); got != "libfoo1,libfoo-devel" {
		t.Errorf("binnames = %q, want %q", got, "libfoo1,libfoo-devel")
	}
	if got := strings.Join(foo.Categories, ","); got != "Libs,Devel" {
		t.Errorf("categories = %q, want %q", got, "Libs,Devel")
	}
	if len(foo.Maintainers) != 1 || foo.Maintainers[0] != "jane@example.org" {
		t.Errorf("maintainers = %v", foo.Maintainers)
	}
	if len(foo.Links) != 1 || foo.Links[0].Type != parse.UpstreamHomepage {
		t.Errorf("links = %v", foo.Links)
	}

	if got := len(acc.Records[1].Links); got != 0 {
		t.Errorf("bar links = %d, want 0", got)
	}
	if got := acc.Records[2].ProjectNameSeed; got != "baz" {
		t.Errorf("third record = %q, want baz", got)
	}
}

func TestParseInvalidEntry(t *testing.T) {
	doc := strings.Replace(fixture, `"name": "bar",
      "version": "0.9-2",`, `"name": "bar",`, 1)

	acc, err := parseFixture(t, doc)
	if !errors.Is(err, parse.ErrMissingVersion) {
		t.Fatalf("Parse() error = %v, want %v", err, parse.ErrMissingVersion)
	}
	if msg := apperrors.UserMessage(err); !strings.HasPrefix(msg, "entry #2") {
		t.Errorf("UserMessage() = %q, want prefix %q", msg, "entry #2")
	}
	if len(acc.Records) != 1 {
		t.Errorf("records before error = %d, want 1", len(acc.Records))
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := parseFixture(t, `{"packages": [`)
	if !apperrors.Is(err, apperrors.ErrCodeInvalidFormat) {
		t.Errorf("Parse() error = %v, want %v", err, apperrors.ErrCodeInvalidFormat)
	}
}

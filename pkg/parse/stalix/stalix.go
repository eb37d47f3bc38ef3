// Package stalix parses the stal/IX package dump: one JSON object per line.
package stalix

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/matzehuels/repotrack/pkg/options"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/parse/maintainers"
)

// Name is the registry name of this parser.
const Name = "StalIxParser"

type entry struct {
	Category       string   `json:"category"`
	FsName         string   `json:"ix_pkg_fs_name"`
	Name           string   `json:"ix_pkg_name"`
	FullName       string   `json:"ix_pkg_full_name"`
	PkgName        string   `json:"pkg_name"`
	PkgVersion     *string  `json:"pkg_ver"`
	Recipe         string   `json:"recipe"`
	Maintainers    []string `json:"maintainers"`
	UpstreamURLs   []string `json:"upstream_urls"`
	LanguageModule *string  `json:"lang_module"`
}

// seedPrefix namespaces language modules so they don't collide with
// same-named native packages.
func (e *entry) seedPrefix() (string, error) {
	if e.LanguageModule == nil {
		return "", nil
	}
	switch *e.LanguageModule {
	case "python":
		return "python:", nil
	case "perl":
		return "perl:", nil
	default:
		return "", fmt.Errorf("unexpected lang_module %s", *e.LanguageModule)
	}
}

// Parser reads a stal/IX dump.
type Parser struct {
	Fs afero.Fs
}

// Factory registers the parser under [Name]. It takes no options.
var Factory = &parse.Factory{
	Name: Name,
	New: func(doc []byte) (parse.Parser, error) {
		if err := options.None(doc); err != nil {
			return nil, err
		}
		return &Parser{}, nil
	},
}

// Parse implements parse.Parser.
func (p *Parser) Parse(path string, sink parse.Sink) error {
	f, err := parse.FS(p.Fs).Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return parse.EachLine(f, func(line string) error {
		return parseLine(line, sink)
	})
}

func parseLine(line string, sink parse.Sink) error {
	var e entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return err
	}
	prefix, err := e.seedPrefix()
	if err != nil {
		return err
	}

	b := parse.NewBuilder()
	b.SetNames(e.FullName, parse.SrcName|parse.TrackName)
	b.SetNames(e.Name, parse.BinName|parse.DisplayName)
	b.SetNames(prefix+e.PkgName, parse.ProjectNameSeed)
	if e.PkgVersion != nil {
		b.SetVersion(*e.PkgVersion)
	}
	b.AddCategory(e.Category)
	for _, m := range e.Maintainers {
		b.AddMaintainers(maintainers.Extract(m)...)
	}
	for _, u := range e.UpstreamURLs {
		b.AddLink(parse.UpstreamDownload, u)
	}

	return sink.Push(b)
}

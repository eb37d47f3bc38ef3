// Package yacp parses the Yacp (Cygwin ports) package index, a single
// JSON document.
package yacp

import (
	"encoding/json"

	"github.com/spf13/afero"

	"github.com/matzehuels/repotrack/pkg/options"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/parse/maintainers"
)

// Name is the registry name of this parser.
const Name = "YacpParser"

type subpackage struct {
	Name     string   `json:"name"`
	Category []string `json:"category"`
}

type pkg struct {
	Name        string       `json:"name"`
	Version     *string      `json:"version"`
	Category    []string     `json:"category"`
	Summary     string       `json:"summary"`
	Homepage    string       `json:"homepage"`
	Subpackages []subpackage `json:"subpackages"`
	Maintainers []string     `json:"maintainers"`
}

type index struct {
	RepositoryName string `json:"repository_name"`
	NumPackages    int    `json:"num_packages"`
	Timestamp      uint64 `json:"timestamp"`
	Packages       []pkg  `json:"packages"`
}

// Parser reads a Yacp index.
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

	var idx index
	if err := json.NewDecoder(f).Decode(&idx); err != nil {
		return parse.Annotate(err, "decode %s", Name)
	}

	for i, entry := range idx.Packages {
		if err := sink.Push(builderFor(entry)); err != nil {
			return parse.Annotate(err, "entry #%d", i+1)
		}
	}
	return nil
}

func builderFor(p pkg) *parse.Builder {
	b := parse.NewBuilder()
	b.SetNames(p.Name, parse.SrcName|parse.TrackName|parse.DisplayName|parse.ProjectNameSeed)
	if p.Version != nil {
		b.SetVersion(*p.Version)
	}
	b.AddCategories(p.Category...)
	b.SetSummary(p.Summary)
	b.AddLink(parse.UpstreamHomepage, p.Homepage)
	for _, m := range p.Maintainers {
		b.AddMaintainers(maintainers.Extract(m)...)
	}
	for _, sub := range p.Subpackages {
		b.AddBinName(sub.Name)
	}
	return b
}

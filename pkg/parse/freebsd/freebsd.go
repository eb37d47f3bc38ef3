// Package freebsd parses the FreeBSD ports INDEX file.
//
// Each line holds 13 '|'-separated fields:
//
//	name-version|path|prefix|comment|descr|maintainer|categories|
//	build deps|run deps|www|extract deps|patch deps|fetch deps
package freebsd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/matzehuels/repotrack/pkg/options"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/parse/maintainers"
)

// Name is the registry name of this parser.
const Name = "FreeBsdParser"

const (
	fieldCount = 13

	fieldNameVersion = 0
	fieldPath        = 1
	fieldComment     = 3
	fieldMaintainer  = 5
	fieldCategories  = 6
	fieldWWW         = 9
)

const portsPrefix = "/usr/ports/"

var errNameVersion = errors.New("expected <package name>-<version> in the first field")

// Parser reads an INDEX file.
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
	fields := strings.Split(strings.TrimSpace(line), "|")
	if len(fields) != fieldCount {
		return fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}

	i := strings.LastIndexByte(fields[fieldNameVersion], '-')
	if i < 0 {
		return errNameVersion
	}
	name, version := fields[fieldNameVersion][:i], fields[fieldNameVersion][i+1:]

	b := parse.NewBuilder()
	b.SetNames(name, parse.ProjectNameSeed|parse.BinName|parse.DisplayName)
	if origin := strings.TrimPrefix(fields[fieldPath], portsPrefix); origin != fields[fieldPath] {
		b.SetNames(origin, parse.SrcName|parse.TrackName)
	}
	b.SetVersion(version)
	b.SetSummary(fields[fieldComment])
	b.AddMaintainers(maintainers.Extract(fields[fieldMaintainer])...)
	b.AddCategories(strings.Fields(fields[fieldCategories])...)
	b.AddLink(parse.UpstreamHomepage, fields[fieldWWW])

	return sink.Push(b)
}

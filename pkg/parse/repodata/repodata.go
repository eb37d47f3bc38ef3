// Package repodata parses the primary.xml document of an RPM repository
// (the "primary" entry of repomd.xml).
//
// The document is decoded package by package, so memory use does not grow
// with repository size. Source packages (arch "src") yield source-named
// records; binary packages yield records keyed on the name of the source
// RPM they were built from.
package repodata

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/matzehuels/repotrack/pkg/options"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/parse/maintainers"
	"github.com/matzehuels/repotrack/pkg/parse/rpm"
)

// Name is the registry name of this parser.
const Name = "RepodataParser"

// Options configures the parser.
type Options struct {
	AllowSrc bool `yaml:"allow_src"`
	AllowBin bool `yaml:"allow_bin"`
	// Disttags are cut out of release fields before version
	// normalization, e.g. "fc" or "el".
	Disttags []string `yaml:"disttags"`
	// BinnamesFromProvides records the versioned <rpm:provides> entries
	// of source packages as binary package names.
	BinnamesFromProvides bool `yaml:"binnames_from_provides"`
}

// DefaultOptions returns options accepting all packages.
func DefaultOptions() Options {
	return Options{AllowSrc: true, AllowBin: true, BinnamesFromProvides: true}
}

type provide struct {
	Name  string  `xml:"name,attr"`
	Flags string  `xml:"flags,attr"`
	Epoch string  `xml:"epoch,attr"`
	Ver   *string `xml:"ver,attr"`
	Rel   *string `xml:"rel,attr"`
}

type evr struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type format struct {
	License   string    `xml:"license"`
	Group     string    `xml:"group"`
	SourceRPM string    `xml:"sourcerpm"`
	Provides  []provide `xml:"provides>entry"`
}

type pkg struct {
	Type     string `xml:"type,attr"`
	Name     string `xml:"name"`
	Arch     string `xml:"arch"`
	Version  evr    `xml:"version"`
	Summary  string `xml:"summary"`
	Packager string `xml:"packager"`
	URL      string `xml:"url"`
	Format   format `xml:"format"`
}

// Parser reads primary.xml.
type Parser struct {
	Fs     afero.Fs
	Logger *log.Logger // log.Default() when nil
	opts   Options
}

// New returns a parser with the given options.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Factory registers the parser under [Name].
var Factory = &parse.Factory{
	Name: Name,
	New: func(doc []byte) (parse.Parser, error) {
		opts := DefaultOptions()
		if err := options.Decode(doc, &opts); err != nil {
			return nil, err
		}
		return New(opts), nil
	},
}

func (p *Parser) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

// Parse implements parse.Parser.
func (p *Parser) Parse(path string, sink parse.Sink) error {
	f, err := parse.FS(p.Fs).Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var stats statistics
	dec := xml.NewDecoder(f)
	n := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return parse.Annotate(err, "after package #%d", n)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "package" {
			continue
		}

		n++
		var pk pkg
		if err := dec.DecodeElement(&pk, &start); err != nil {
			return parse.Annotate(err, "package #%d", n)
		}
		if err := p.processPackage(&pk, sink, &stats); err != nil {
			return parse.Annotate(err, "package #%d (%s)", n, pk.Name)
		}
	}

	stats.report(p.logger(), p.opts)
	return nil
}

func (p *Parser) processPackage(pk *pkg, sink parse.Sink, stats *statistics) error {
	if strings.Contains(pk.Name, "%{") {
		return fmt.Errorf("unexpanded interpolation in package name (%s)", pk.Name)
	}

	isSrc := pk.Arch == "src"
	if (isSrc && !p.opts.AllowSrc) || (!isSrc && !p.opts.AllowBin) {
		stats.skipArch(pk.Arch)
		return nil
	}

	b := parse.NewBuilder()
	if isSrc {
		b.SetNames(pk.Name, parse.SrcName|parse.TrackName|parse.DisplayName|parse.ProjectNameSeed)
	} else {
		src, err := rpm.ParseNevra(pk.Format.SourceRPM)
		if err != nil {
			return err
		}
		b.SetNames(pk.Name, parse.BinName|parse.DisplayName)
		b.SetNames(src.Name, parse.SrcName|parse.TrackName|parse.ProjectNameSeed)
	}

	version, flags := rpm.NormalizeVersion(pk.Version.Ver, pk.Version.Rel, p.opts.Disttags)
	b.SetVersionWithRaw(version, rpm.MergeEVR(pk.Version.Epoch, pk.Version.Ver, pk.Version.Rel))
	b.SetFlags(flags)

	b.SetSummary(pk.Summary)
	b.AddLink(parse.UpstreamHomepage, pk.URL)
	b.AddCategory(pk.Format.Group)
	b.AddLicense(pk.Format.License)
	b.SetArch(pk.Arch)
	b.AddMaintainers(maintainers.Extract(pk.Packager)...)

	if isSrc {
		for _, prov := range pk.Format.Provides {
			stats.hasProvides = true
			if !p.opts.BinnamesFromProvides {
				continue
			}
			switch {
			case prov.Ver == nil || prov.Rel == nil:
				stats.withoutVersion.add(prov.Name)
			case strings.Contains(prov.Name, "("):
				stats.withParentheses.add(prov.Name)
			default:
				b.AddBinName(prov.Name)
			}
		}
	}

	return sink.Push(b)
}

const sampleSize = 10

// sample counts skipped names and keeps the first few for diagnostics.
type sample struct {
	count int
	names []string
}

func (s *sample) add(name string) {
	s.count++
	if len(s.names) < sampleSize {
		s.names = append(s.names, name)
	}
}

type statistics struct {
	skippedArchs    map[string]int
	hasProvides     bool
	withoutVersion  sample
	withParentheses sample
}

func (s *statistics) skipArch(arch string) {
	if s.skippedArchs == nil {
		s.skippedArchs = make(map[string]int)
	}
	s.skippedArchs[arch]++
}

func (s *statistics) report(logger *log.Logger, opts Options) {
	for _, arch := range slices.Sorted(maps.Keys(s.skippedArchs)) {
		logger.Info("skipped packages with disallowed architecture", "arch", arch, "count", s.skippedArchs[arch])
	}
	if s.hasProvides && !opts.BinnamesFromProvides {
		logger.Error("not extracting binary package names from <rpm:provides> entries, disabled in options")
	}
	if s.withoutVersion.count > 0 {
		logger.Warn("skipped <rpm:provides> entries with incomplete version (rel/ver)",
			"count", s.withoutVersion.count, "sample", strings.Join(s.withoutVersion.names, ", "))
	}
	if s.withParentheses.count > 0 {
		logger.Warn("skipped <rpm:provides> entries with parentheses",
			"count", s.withParentheses.count, "sample", strings.Join(s.withParentheses.names, ", "))
	}
}

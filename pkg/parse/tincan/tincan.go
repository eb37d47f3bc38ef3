// Package tincan parses a TinCan ports tree: one package.toml per package
// directory, with patches kept under files/.
package tincan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/matzehuels/repotrack/pkg/options"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/parse/maintainers"
	"github.com/matzehuels/repotrack/pkg/parse/walk"
)

// Name is the registry name of this parser.
const Name = "TinCanParser"

const manifestName = "package.toml"

type meta struct {
	Version    string   `toml:"version"`
	Maintainer string   `toml:"maintainer"`
	Sources    []string `toml:"sources"`
	Checksums  []string `toml:"checksums"`
}

type manifest struct {
	Meta   meta              `toml:"meta"`
	Deps   map[string]string `toml:"deps"`
	MkDeps map[string]string `toml:"mkdeps"`
}

// Options configures the parser.
type Options struct {
	// Exclude holds gitignore-style patterns, relative to the tree root,
	// for directories or manifests to skip.
	Exclude []string `yaml:"exclude"`
}

// Parser reads a TinCan ports tree.
type Parser struct {
	Fs   afero.Fs
	opts Options
}

// New returns a parser with the given options.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Factory registers the parser under [Name].
var Factory = &parse.Factory{
	Name: Name,
	New: func(doc []byte) (parse.Parser, error) {
		var opts Options
		if err := options.Decode(doc, &opts); err != nil {
			return nil, err
		}
		return New(opts), nil
	},
}

// Parse implements parse.Parser. path is the root of the ports tree.
func (p *Parser) Parse(path string, sink parse.Sink) error {
	fsys := parse.FS(p.Fs)
	w := walk.Walker{Fs: fsys, Ignore: p.opts.Exclude}
	return w.ByName(path, manifestName, func(e walk.Entry) error {
		if err := processPackage(fsys, e, sink); err != nil {
			return parse.Annotate(err, "while processing %s", e.Rel)
		}
		return nil
	})
}

func processPackage(fsys afero.Fs, e walk.Entry, sink parse.Sink) error {
	dir := filepath.Dir(e.Path)
	subdir := filepath.Base(dir)

	data, err := afero.ReadFile(fsys, e.Path)
	if err != nil {
		return err
	}
	var m manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in %s: %v", manifestName, undecoded)
	}

	b := parse.NewBuilder()
	b.SetNames(subdir, parse.SrcName|parse.TrackName|parse.DisplayName|parse.ProjectNameSeed)
	if md.IsDefined("meta", "version") {
		b.SetVersion(m.Meta.Version)
	}
	b.AddMaintainers(maintainers.Extract(m.Meta.Maintainer)...)

	patches := []string{}
	for _, src := range m.Meta.Sources {
		switch {
		case strings.Contains(src, "://"):
			b.AddLink(parse.UpstreamDownload, src)
		case strings.HasPrefix(src, "files/") && strings.HasSuffix(src, ".patch"):
			ok, err := afero.Exists(fsys, filepath.Join(dir, filepath.FromSlash(src)))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("patch file %s mentioned in meta.sources section was not found on the file system", src)
			}
			patches = append(patches, src)
		}
	}
	b.SetExtraField("patches", patches)

	return sink.Push(b)
}

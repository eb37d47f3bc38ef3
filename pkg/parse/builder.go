package parse

import (
	"errors"
	"slices"
)

// Validation errors returned by [Builder.Finalize], in checking order.
var (
	ErrMissingProjectNameSeed = errors.New("missing project name seed")
	ErrEmptyProjectNameSeed   = errors.New("empty project name seed")
	ErrMissingVersion         = errors.New("missing version")
	ErrEmptyVersion           = errors.New("empty version")
)

// ErrBuilderFinalized is returned when Finalize is called more than once.
var ErrBuilderFinalized = errors.New("builder already finalized")

// IsValidation reports whether err is a record validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingProjectNameSeed, ErrEmptyProjectNameSeed,
		ErrMissingVersion, ErrEmptyVersion, ErrBuilderFinalized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Builder accumulates the fields of one package entry. Setters may be
// called in any order and never fail; validation is deferred to Finalize.
// The zero value is ready to use. A Builder is consumed by Finalize and
// cannot be reused.
type Builder struct {
	rec        Record
	hasSeed    bool
	hasVersion bool
	finalized  bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// SetNames assigns name to every name field selected by types.
func (b *Builder) SetNames(name string, types NameType) *Builder {
	if types&ProjectNameSeed != 0 {
		b.rec.ProjectNameSeed = name
		b.hasSeed = true
	}
	if types&SrcName != 0 {
		b.rec.SrcName = name
	}
	if types&BinName != 0 {
		b.rec.BinName = name
	}
	if types&TrackName != 0 {
		b.rec.TrackName = name
	}
	if types&DisplayName != 0 {
		b.rec.DisplayName = name
	}
	return b
}

// SetName sets the project name seed only.
func (b *Builder) SetName(name string) *Builder {
	return b.SetNames(name, ProjectNameSeed)
}

// SetVersion sets the version.
func (b *Builder) SetVersion(version string) *Builder {
	b.rec.Version = version
	b.rec.RawVersion = ""
	b.hasVersion = true
	return b
}

// SetVersionWithRaw sets a normalized version along with the version as
// published upstream. The raw version is kept only when it differs.
func (b *Builder) SetVersionWithRaw(version, raw string) *Builder {
	b.SetVersion(version)
	if raw != version {
		b.rec.RawVersion = raw
	}
	return b
}

func (b *Builder) SetSummary(summary string) *Builder {
	b.rec.Summary = summary
	return b
}

// AddCategory appends a non-empty category.
func (b *Builder) AddCategory(category string) *Builder {
	if category != "" {
		b.rec.Categories = append(b.rec.Categories, category)
	}
	return b
}

// AddCategories appends every non-empty category.
func (b *Builder) AddCategories(categories ...string) *Builder {
	for _, c := range categories {
		b.AddCategory(c)
	}
	return b
}

// AddLicense appends a non-empty license.
func (b *Builder) AddLicense(license string) *Builder {
	if license != "" {
		b.rec.Licenses = append(b.rec.Licenses, license)
	}
	return b
}

// AddMaintainers appends maintainers not already present.
func (b *Builder) AddMaintainers(maintainers ...string) *Builder {
	for _, m := range maintainers {
		if m == "" || slices.Contains(b.rec.Maintainers, m) {
			continue
		}
		b.rec.Maintainers = append(b.rec.Maintainers, m)
	}
	return b
}

// AddLink appends a link with a non-empty URL.
func (b *Builder) AddLink(t LinkType, url string) *Builder {
	if url != "" {
		b.rec.Links = append(b.rec.Links, Link{Type: t, URL: url})
	}
	return b
}

// AddBinName appends a binary package name not already present.
func (b *Builder) AddBinName(name string) *Builder {
	if name != "" && !slices.Contains(b.rec.BinNames, name) {
		b.rec.BinNames = append(b.rec.BinNames, name)
	}
	return b
}

// AddBinNames appends every binary package name.
func (b *Builder) AddBinNames(names ...string) *Builder {
	for _, n := range names {
		b.AddBinName(n)
	}
	return b
}

func (b *Builder) SetArch(arch string) *Builder {
	b.rec.Arch = arch
	return b
}

// SetFlags replaces the record flags.
func (b *Builder) SetFlags(f Flags) *Builder {
	b.rec.Flags = f
	return b
}

// SetExtraField stores a format-specific value under key.
func (b *Builder) SetExtraField(key string, value any) *Builder {
	if b.rec.Extra == nil {
		b.rec.Extra = make(map[string]any)
	}
	b.rec.Extra[key] = value
	return b
}

// Finalize validates the accumulated fields and returns the record.
//
// The builder is consumed whether or not validation succeeds; later calls
// return ErrBuilderFinalized.
func (b *Builder) Finalize() (Record, error) {
	if b.finalized {
		return Record{}, ErrBuilderFinalized
	}
	b.finalized = true

	switch {
	case !b.hasSeed:
		return Record{}, ErrMissingProjectNameSeed
	case b.rec.ProjectNameSeed == "":
		return Record{}, ErrEmptyProjectNameSeed
	case !b.hasVersion:
		return Record{}, ErrMissingVersion
	case b.rec.Version == "":
		return Record{}, ErrEmptyVersion
	}

	return b.rec, nil
}

package parse

import "strings"

// NameType selects which name fields [Builder.SetNames] assigns.
// Values combine with bitwise OR.
type NameType uint8

const (
	// ProjectNameSeed is the name used to derive the project a package
	// belongs to. Required.
	ProjectNameSeed NameType = 1 << iota
	SrcName
	BinName
	TrackName
	DisplayName
)

// LinkType classifies a URL attached to a record.
type LinkType string

const (
	UpstreamHomepage     LinkType = "upstream_homepage"
	UpstreamDownload     LinkType = "upstream_download"
	UpstreamRepository   LinkType = "upstream_repository"
	UpstreamIssueTracker LinkType = "upstream_issue_tracker"
	ProjectHomepage      LinkType = "project_homepage"
	PackageHomepage      LinkType = "package_homepage"
	PackageSources       LinkType = "package_sources"
	PackageRecipe        LinkType = "package_recipe"
	PackagePatch         LinkType = "package_patch"
	OtherLink            LinkType = "other"
)

// Link is a typed URL.
type Link struct {
	Type LinkType `yaml:"type" json:"type"`
	URL  string   `yaml:"url" json:"url"`
}

// Flags is a set of record classification bits.
type Flags uint32

const (
	FlagRemove Flags = 1 << iota
	FlagDevel
	FlagIgnore
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagRemove, "remove"},
	{FlagDevel, "devel"},
	{FlagIgnore, "ignore"},
}

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Names returns the names of the set flags in bit order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// MarshalYAML renders flags as a list of names.
func (f Flags) MarshalYAML() (any, error) {
	return f.Names(), nil
}

// Record is a validated, normalized package entry. Only ProjectNameSeed and
// Version are guaranteed to be non-empty.
type Record struct {
	ProjectNameSeed string `yaml:"projectname_seed" json:"projectname_seed"`
	Version         string `yaml:"version" json:"version"`

	// RawVersion is the version as published upstream, when normalization
	// changed it.
	RawVersion string `yaml:"raw_version,omitempty" json:"raw_version,omitempty"`

	SrcName     string   `yaml:"srcname,omitempty" json:"srcname,omitempty"`
	BinName     string   `yaml:"binname,omitempty" json:"binname,omitempty"`
	BinNames    []string `yaml:"binnames,omitempty" json:"binnames,omitempty"`
	TrackName   string   `yaml:"trackname,omitempty" json:"trackname,omitempty"`
	DisplayName string   `yaml:"visiblename,omitempty" json:"visiblename,omitempty"`

	Summary     string   `yaml:"summary,omitempty" json:"summary,omitempty"`
	Categories  []string `yaml:"categories,omitempty" json:"categories,omitempty"`
	Licenses    []string `yaml:"licenses,omitempty" json:"licenses,omitempty"`
	Maintainers []string `yaml:"maintainers,omitempty" json:"maintainers,omitempty"`
	Links       []Link   `yaml:"links,omitempty" json:"links,omitempty"`
	Arch        string   `yaml:"arch,omitempty" json:"arch,omitempty"`
	Flags       Flags    `yaml:"flags,omitempty" json:"flags,omitempty"`

	// Extra holds format-specific fields without a dedicated column.
	Extra map[string]any `yaml:"extra,omitempty" json:"extra,omitempty"`
}

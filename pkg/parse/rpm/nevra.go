// Package rpm holds helpers for RPM-based repository metadata: NEVRA
// parsing, EVR formatting and release-field version normalization.
package rpm

import (
	"fmt"
	"strings"
)

// Nevra is a parsed name-epoch:version-release.arch string, as found in
// source RPM file names.
type Nevra struct {
	Name    string
	Epoch   string // empty when absent
	Version string
	Release string
	Arch    string
}

// ParseNevra parses s, with or without a trailing ".rpm".
func ParseNevra(s string) (Nevra, error) {
	rest := strings.TrimSuffix(s, ".rpm")

	rest, arch, ok := cutLast(rest, ".")
	if !ok {
		return Nevra{}, fmt.Errorf("cannot parse NEVRA value (%s)", s)
	}
	rest, release, ok := cutLast(rest, "-")
	if !ok {
		return Nevra{}, fmt.Errorf("cannot parse NEVRA value (%s)", s)
	}
	name, version, ok := cutLast(rest, "-")
	if !ok {
		return Nevra{}, fmt.Errorf("cannot parse NEVRA value (%s)", s)
	}

	n := Nevra{Name: name, Version: version, Release: release, Arch: arch}
	if epoch, v, ok := cutLast(version, ":"); ok {
		n.Epoch, n.Version = epoch, v
	}
	return n, nil
}

// MergeEVR formats epoch, version and release as "[epoch:]version-release".
// An epoch of "" or "0" is omitted.
func MergeEVR(epoch, version, release string) string {
	if epoch != "" && epoch != "0" {
		return epoch + ":" + version + "-" + release
	}
	return version + "-" + release
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

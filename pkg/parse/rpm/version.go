package rpm

import (
	"regexp"
	"strings"

	"github.com/matzehuels/repotrack/pkg/parse"
)

var (
	// Accepts alpha1, alpha20210101 and alpha.1, but not alpha.20210101,
	// which yields alpha.
	prereleaseRe         = regexp.MustCompile(`(?i)^(.*?)((?:alpha|beta|rc)(?:[0-9]+|\.[0-9]{1,2})?)((?:[^0-9].*)?)$`)
	prereleaseFallbackRe = regexp.MustCompile(`(?i)^(.*?)((?:dev|pre)(?:[0-9]+|\.[0-9]{1,2})?)((?:[^0-9].*)?)$`)
	postreleaseRe        = regexp.MustCompile(`(?i)^(.*?)((?:post)[0-9]+)(.*)$`)
	snapshotRe           = regexp.MustCompile(`(?i)[a-z]|20[0-9]{6}`)
)

// NormalizeVersion derives a comparable version from an RPM version and
// release.
//
// Distribution tags (e.g. "el", "fc", "mga") are cut out of the release
// first. Pre-release suffixes (alpha2, beta.3, rc1, pre11, dev1) found in
// the release are appended to the version and set FlagDevel; post-release
// suffixes (post3) are appended without flags. A release that is zero or
// starts with "0." without a recognized pre-release suffix, or whose
// remainder contains letters or dates, sets FlagIgnore since it most
// likely denotes a snapshot.
func NormalizeVersion(version, release string, disttags []string) (string, parse.Flags) {
	var flags parse.Flags

	parts := []string{release}
	for _, tag := range disttags {
		if tag == "" {
			continue
		}
		var split []string
		for _, p := range parts {
			split = append(split, strings.Split(p, tag)...)
		}
		parts = split
	}

	var cleaned strings.Builder
	for _, part := range parts {
		m := prereleaseRe.FindStringSubmatch(part)
		if m == nil {
			m = prereleaseFallbackRe.FindStringSubmatch(part)
		}
		if m != nil {
			flags |= parse.FlagDevel
		} else {
			m = postreleaseRe.FindStringSubmatch(part)
		}
		if m == nil {
			cleaned.WriteString(part)
			continue
		}

		left, suffix, right := m[1], m[2], m[3]
		version += "-" + suffix
		cleaned.WriteString(left)
		if left != "" && right != "" {
			cleaned.WriteByte('.')
		}
		cleaned.WriteString(right)
	}

	rest := cleaned.String()
	if (rest == "0" || strings.HasPrefix(rest, "0.")) && !flags.Has(parse.FlagDevel) {
		flags |= parse.FlagIgnore
	}
	if snapshotRe.MatchString(rest) {
		flags |= parse.FlagIgnore
	}
	return version, flags
}

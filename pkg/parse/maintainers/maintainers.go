// Package maintainers extracts maintainer e-mail addresses from free-form
// text such as "Jane Doe <jane@example.org>, ports@example.org".
package maintainers

import (
	"regexp"
	"slices"
	"strings"
)

var looksLikeEmail = regexp.MustCompile(`^[^<>\s]+@[^<>\s]+$`)

// Extract returns the sorted, deduplicated, ASCII-lowercased addresses
// found in s.
//
// s is split on commas. Within a part, an address in angle brackets is
// always accepted. A bare address is accepted only when the part holds no
// other words, since it may otherwise be a fragment of an obfuscated
// address ("foo dot bar@example.org").
func Extract(s string) []string {
	seen := make(map[string]struct{})

	for part := range strings.SplitSeq(s, ",") {
		var candidates []string
		otherWords := false

		for _, word := range strings.Fields(part) {
			if inner, ok := bracketed(word); ok {
				if looksLikeEmail.MatchString(inner) {
					seen[asciiLower(inner)] = struct{}{}
				}
				continue
			}
			if looksLikeEmail.MatchString(word) {
				candidates = append(candidates, asciiLower(word))
			} else {
				otherWords = true
			}
		}

		if !otherWords {
			for _, c := range candidates {
				seen[c] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func bracketed(word string) (string, bool) {
	inner, ok := strings.CutPrefix(word, "<")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(inner, ">")
}

// asciiLower lowercases ASCII letters only, leaving other runes intact.
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

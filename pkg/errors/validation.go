package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidateSourceName validates a repository source name.
// Source names become directory names under the state root, so anything
// that could escape that root or confuse the generation naming is rejected:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - No leading dot
//   - Maximum length of 128 characters
func ValidateSourceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidSource, "source name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidSource, "source name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidSource, "source name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, `/\`) {
		return New(ErrCodeInvalidSource, "source name cannot contain path separators: %q", name)
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidSource, "source name cannot start with a dot: %q", name)
	}

	return nil
}

// ValidateURL validates an upstream URL.
// It ensures the URL parses, has a host, and uses one of the allowed schemes
// (http and https when none are given).
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidOptions, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidOptions, err, "invalid URL %q", rawURL)
	}

	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" && s != "file" {
				return New(ErrCodeInvalidOptions, "URL %q has no host", rawURL)
			}
			return nil
		}
	}
	return New(ErrCodeInvalidOptions, "URL %q must use one of the schemes %s", rawURL, strings.Join(schemes, ", "))
}

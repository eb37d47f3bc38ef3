package fetch

import "github.com/matzehuels/repotrack/pkg/options"

// DecodeOptions decodes a fetcher options document into v, which should
// already hold the fetcher's defaults. See [options.Decode].
func DecodeOptions(doc []byte, v any) error {
	return options.Decode(doc, v)
}

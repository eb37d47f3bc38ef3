// Package options decodes the per-implementation YAML options documents
// handed to fetcher and parser factories.
package options

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
)

// Decode decodes a YAML options document into v, which should already
// hold the implementation's defaults. Unknown keys are rejected. An empty
// document leaves v unchanged.
func Decode(doc []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrap(apperrors.ErrCodeInvalidOptions, err, "decode options")
	}
	return nil
}

// None rejects any non-empty options document, for implementations that
// take no options.
func None(doc []byte) error {
	var empty struct{}
	return Decode(doc, &empty)
}

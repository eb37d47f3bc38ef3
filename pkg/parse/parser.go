package parse

import (
	"bufio"
	"io"
	"slices"

	"github.com/spf13/afero"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
)

// Parser reads a committed payload and pushes one builder per discovered
// entry to a Sink.
//
// path is the payload root: a single file or a directory tree, depending on
// the format. Parsers never modify it. A structural error aborts the call;
// records pushed before it stay in the sink.
type Parser interface {
	Parse(path string, sink Sink) error
}

// Factory constructs a Parser from a YAML options document.
type Factory struct {
	Name string
	New  func(options []byte) (Parser, error)
}

// FindFactory returns the factory with the given name, or nil if not found.
func FindFactory(name string, all []*Factory) *Factory {
	i := slices.IndexFunc(all, func(f *Factory) bool { return f.Name == name })
	if i < 0 {
		return nil
	}
	return all[i]
}

// FS returns fs, or the OS filesystem when fs is nil. Parsers keep an
// afero.Fs field so tests can run against an in-memory tree.
func FS(fs afero.Fs) afero.Fs {
	if fs == nil {
		return afero.NewOsFs()
	}
	return fs
}

// Annotate wraps err with the location of the entry that produced it,
// e.g. "on line 3" or "entry #2". Validation errors are classified as
// invalid records, anything else as invalid format unless already coded.
func Annotate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	code := apperrors.GetCode(err)
	switch {
	case code != "":
	case IsValidation(err):
		code = apperrors.ErrCodeInvalidRecord
	default:
		code = apperrors.ErrCodeInvalidFormat
	}
	return apperrors.Wrap(code, err, format, args...)
}

// maxLineSize bounds a single line read by EachLine.
const maxLineSize = 16 << 20

// EachLine calls fn for every line of r with its 1-based number. Errors
// returned by fn are annotated with the line number.
func EachLine(r io.Reader, fn func(line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		if err := fn(sc.Text()); err != nil {
			return Annotate(err, "on line %d", n)
		}
	}
	if err := sc.Err(); err != nil {
		return Annotate(err, "after line %d", n)
	}
	return nil
}

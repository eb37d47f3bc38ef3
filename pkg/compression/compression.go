// Package compression detects the compression scheme of upstream payloads
// and stream-decodes them to disk with constant memory.
package compression

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Codec identifies a compression scheme by its file extension.
type Codec string

const (
	None  Codec = ""
	Gzip  Codec = "gz"
	Bzip2 Codec = "bz2"
	Xz    Codec = "xz"
	Zstd  Codec = "zst"
)

var (
	// ErrUnknownCompressionExtension is returned when the text after the base
	// suffix is not a known compression extension.
	ErrUnknownCompressionExtension = errors.New("unknown compression extension")

	// ErrMissingExpectedSuffix is returned when the base suffix does not occur
	// in the name at all.
	ErrMissingExpectedSuffix = errors.New("missing expected suffix")

	// ErrUnknownCodec is returned when decoding a codec name that is not supported.
	ErrUnknownCodec = errors.New("unknown compression codec")
)

var extensions = map[string]Codec{
	"":     None,
	".gz":  Gzip,
	".bz2": Bzip2,
	".xz":  Xz,
	".zst": Zstd,
}

// Detect determines the codec of pathOrURL from what follows the last
// occurrence of baseSuffix. Nothing following it means None.
//
//	Detect("primary.xml.gz", ".xml") // Gzip
//	Detect("primary.xml", ".xml")    // None
func Detect(pathOrURL, baseSuffix string) (Codec, error) {
	i := strings.LastIndex(pathOrURL, baseSuffix)
	if i < 0 {
		return None, fmt.Errorf("cannot determine compression of %q: %w %q", pathOrURL, ErrMissingExpectedSuffix, baseSuffix)
	}
	rest := pathOrURL[i+len(baseSuffix):]
	c, ok := extensions[rest]
	if !ok {
		return None, fmt.Errorf("cannot determine compression of %q: %w %q", pathOrURL, ErrUnknownCompressionExtension, rest)
	}
	return c, nil
}

// String returns the codec name, "none" for None.
func (c Codec) String() string {
	if c == None {
		return "none"
	}
	return string(c)
}

// UnmarshalText accepts extension names ("gz", "zst") as well as the long
// forms ("gzip", "zstd", "Bz2"), case-insensitively.
func (c *Codec) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "none":
		*c = None
	case "gz", "gzip":
		*c = Gzip
	case "bz2", "bzip2":
		*c = Bzip2
	case "xz":
		*c = Xz
	case "zst", "zstd":
		*c = Zstd
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCodec, text)
	}
	return nil
}

// NewReader wraps r in the streaming decoder for c. For None the reader is
// passed through. Closing the result does not close r.
func NewReader(r io.Reader, c Codec) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gr, nil
	case Bzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case Xz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, string(c))
	}
}

// StreamToFile decodes r with c into a new file at dst and returns the number
// of decoded bytes. The file is synced to stable storage before returning,
// so a subsequent commit can never publish a truncated payload.
func StreamToFile(r io.Reader, dst string, c Codec) (n int64, err error) {
	dec, err := NewReader(r, c)
	if err != nil {
		return 0, fmt.Errorf("open %s decoder: %w", c, err)
	}
	defer dec.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if n, err = io.Copy(f, dec); err != nil {
		return n, fmt.Errorf("decode %s stream: %w", c, err)
	}
	if err = f.Sync(); err != nil {
		return n, err
	}
	return n, nil
}

// Package repodata implements a fetcher for RPM repositories.
//
// The fetcher reads repodata/repomd.xml, picks one <data> entry (primary by
// default) and downloads the file it points to. The entry's open-checksum is
// remembered, so an unchanged repository costs a single small request.
package repodata

import (
	"context"
	"encoding/xml"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/repotrack/pkg/compression"
	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/httputil"
	"github.com/matzehuels/repotrack/pkg/transact"
)

// Name is the registry name of this fetcher.
const Name = "RepodataFetcher"

const mirrorListSuffix = "mirror.list"

// Options configures a Fetcher.
type Options struct {
	// URL is the repository base URL, or a mirror.list document whose first
	// entry is used as the base URL.
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	DataType string        `yaml:"data_type"`
}

// DefaultOptions returns the options applied before decoding a document.
func DefaultOptions() Options {
	return Options{Timeout: time.Minute, DataType: "primary"}
}

// Factory registers the fetcher under [Name].
var Factory = &fetch.Factory{
	Name: Name,
	New: func(doc []byte) (fetch.Fetcher, error) {
		opts := DefaultOptions()
		if err := fetch.DecodeOptions(doc, &opts); err != nil {
			return nil, err
		}
		return New(opts)
	},
}

// Fetcher downloads one repomd data file into a new generation.
type Fetcher struct {
	opts Options
}

// New validates opts and returns a Fetcher.
func New(opts Options) (*Fetcher, error) {
	if err := apperrors.ValidateURL(opts.URL); err != nil {
		return nil, err
	}
	if opts.DataType == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidOptions, "data_type cannot be empty")
	}
	return &Fetcher{opts: opts}, nil
}

type checksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// String returns the checksum in the "type:value" form stored in metadata.
func (c checksum) String() string {
	return c.Type + ":" + strings.TrimSpace(c.Value)
}

type dataEntry struct {
	Type         string   `xml:"type,attr"`
	Checksum     checksum `xml:"checksum"`
	OpenChecksum checksum `xml:"open-checksum"`
	Location     struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
	Size     int64 `xml:"size"`
	OpenSize int64 `xml:"open-size"`
}

type repoMD struct {
	Revision string      `xml:"revision"`
	Data     []dataEntry `xml:"data"`
}

func (m *repoMD) find(dataType string) (*dataEntry, bool) {
	for i := range m.Data {
		if m.Data[i].Type == dataType {
			return &m.Data[i], true
		}
	}
	return nil, false
}

// changeToken identifies the decoded content of an entry. open-checksum is
// absent for uncompressed entries, in which case checksum is used.
func (d *dataEntry) changeToken() string {
	if d.OpenChecksum.Value != "" {
		return d.OpenChecksum.String()
	}
	return d.Checksum.String()
}

func (f *Fetcher) baseURL(ctx context.Context, client *http.Client) (string, error) {
	u := f.opts.URL
	if strings.HasSuffix(u, mirrorListSuffix) {
		list, err := httputil.GetText(ctx, client, httputil.Request{URL: u})
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrCodeNetwork, err, "fetch mirror list")
		}
		fields := strings.Fields(list)
		if len(fields) == 0 {
			return "", apperrors.New(apperrors.ErrCodeInvalidFormat, "mirror list %s is empty", u)
		}
		u = fields[0]
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u, nil
}

func (f *Fetcher) repoMD(ctx context.Context, client *http.Client, base string) (*dataEntry, error) {
	resp, err := httputil.Get(ctx, client, httputil.Request{URL: base + "repodata/repomd.xml"})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "fetch repomd.xml")
	}
	defer resp.Body.Close()

	var md repoMD
	if err := xml.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode repomd.xml")
	}
	entry, ok := md.find(f.opts.DataType)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat,
			"cannot find required <data> entry of type %q in repomd.xml", f.opts.DataType)
	}
	if entry.Location.Href == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "<data> entry %q has no location", f.opts.DataType)
	}
	return entry, nil
}

// Fetch implements fetch.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, dir string, client *http.Client) (out fetch.Outcome, err error) {
	store := transact.New(dir)
	if err := store.Cleanup(); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "clean up %s", dir)
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	base, err := f.baseURL(ctx, client)
	if err != nil {
		return out, err
	}
	entry, err := f.repoMD(ctx, client, base)
	if err != nil {
		return out, err
	}

	token := entry.changeToken()
	if current, ok := store.Current(); ok && fetch.LoadMetadata(current).Checksum == token {
		return fetch.Unchanged(), nil
	}

	dataURL := base + entry.Location.Href
	codec, err := compression.Detect(entry.Location.Href, ".xml")
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeInvalidCompression, err, "data file %s", dataURL)
	}

	resp, err := httputil.Get(ctx, client, httputil.Request{URL: dataURL})
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "fetch %s", dataURL)
	}
	defer resp.Body.Close()

	staging, err := store.Begin()
	if err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "begin replace of %s", dir)
	}
	defer func() {
		if !out.Updated() {
			_ = staging.Discard()
		}
	}()

	statePath := filepath.Join(staging.Path(), fetch.StateFileName)
	if _, err := compression.StreamToFile(resp.Body, statePath, codec); err != nil {
		return out, fetch.TransferError(ctx, err, dataURL)
	}
	if err := fetch.SaveMetadata(fetch.Metadata{Checksum: token}, staging.Path()); err != nil {
		return out, apperrors.Wrap(apperrors.ErrCodeStorage, err, "save fetch metadata")
	}
	return fetch.Updated(staging), nil
}

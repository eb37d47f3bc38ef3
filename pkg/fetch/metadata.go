package fetch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Metadata records what a generation was fetched from, so the next fetch can
// skip unchanged upstream data. Empty fields mean "unknown".
type Metadata struct {
	ETag     string `json:"etag,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

// LoadMetadata reads the metadata document of the generation in dir.
// A missing or unreadable document yields the zero Metadata: it only means
// the next fetch cannot be skipped.
func LoadMetadata(dir string) Metadata {
	var m Metadata
	data, err := os.ReadFile(filepath.Join(dir, MetadataFileName))
	if err != nil {
		return Metadata{}
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}
	}
	return m
}

// SaveMetadata writes m into dir, which must be the staging directory
// holding the payload m describes. The file is synced before returning.
func SaveMetadata(m Metadata, dir string) (err error) {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, MetadataFileName))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err = f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

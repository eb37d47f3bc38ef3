package fetch

import (
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// ChecksumPrefix tags checksums computed locally, distinguishing them from
// checksums published by upstream.
const ChecksumPrefix = "blake3:"

// FileChecksum returns the tagged blake3 digest of the file at path.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return ChecksumPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// SyncTree flushes every regular file and directory under root to stable
// storage. Fetchers that write a directory tree call it before returning
// an update.
func SyncTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return f.Sync()
	})
}

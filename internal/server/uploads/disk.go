package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore keeps uploads in a local directory. The HTTP layer serves that
// directory under the static URL prefix.
type DiskStore struct {
	dir       string
	urlPrefix string
}

// NewDiskStore ensures the upload directory exists and returns a store
// deriving URLs under urlPrefix.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("uploads: mkdir %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Dir returns the directory uploads are stored in.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) error {
	f, err := os.Create(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil {
		return fmt.Errorf("uploads: create %s: %w", filename, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("uploads: write %s: %w", filename, err)
	}
	return f.Close()
}

func (s *DiskStore) URL(filename string) string {
	return s.urlPrefix + "/" + filename
}

// Package uploads stores user-submitted files (avatars, post images) and
// derives the public URLs they are served under. Two backends exist: the
// local disk (served by the HTTP layer under the static prefix) and an
// S3-compatible object store.
package uploads

import (
	"context"
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

// Store saves uploaded files under store-chosen names and resolves stored
// filenames to public URLs.
type Store interface {
	// Save writes the file contents under filename.
	Save(ctx context.Context, filename string, r io.Reader) error

	// URL returns the public URL a stored filename is reachable at.
	URL(filename string) string
}

// RandomFilename returns a fresh storage name keeping the original
// extension. Uploaded files never keep their client-supplied names.
func RandomFilename(original string) string {
	return uuid.NewString() + filepath.Ext(original)
}

package formtonic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/G-Node/formtonic/formtonic/form"
	"github.com/google/uuid"
)

// MediaStore keeps uploaded files in a directory.
type MediaStore struct {
	dir string
}

// NewMediaStore creates the directory if necessary.
func NewMediaStore(dir string) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media directory: %w", err)
	}
	return &MediaStore{dir: dir}, nil
}

// Save writes the upload and sets its StoredName.  Stored names are unique
// and keep the base name of the original file.
func (ms *MediaStore) Save(upload *form.Upload) error {
	base := filepath.Base(strings.ReplaceAll(upload.Filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	name := fmt.Sprintf("%s-%s", uuid.NewString()[:8], base)
	if err := os.WriteFile(filepath.Join(ms.dir, name), upload.Data, 0o644); err != nil {
		return err
	}
	upload.StoredName = name
	return nil
}

// Path returns the path of a stored file, or an error if name isn't a plain
// stored name.
func (ms *MediaStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", os.ErrNotExist
	}
	return filepath.Join(ms.dir, name), nil
}

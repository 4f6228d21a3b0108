// Package bundle persists a rendered page as an immutable, addressable
// filesystem bundle: one directory per bundle, named by a fresh UUID,
// containing a single index.html. Directory creation is exclusive, so two
// bundles never collide, and a failed write rolls the directory back out
// rather than leaving a half-written bundle behind.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const indexFileName = "index.html"
const dirPerm = 0o755
const filePerm = 0o644

// Store writes bundles under a fixed root directory on the local
// filesystem.
type Store struct {
	root string
}

// New returns a Store rooted at root. root is created if it does not
// already exist.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("bundle: create root %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Create writes html into a brand-new bundle directory and returns its id.
// The directory is created with os.Mkdir (not MkdirAll), which fails if the
// name already exists — on the vanishingly unlikely chance of a UUID
// collision, Create simply generates a new id and retries once.
func (s *Store) Create(html string) (id string, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		id = uuid.NewString()
		dir := s.path(id)

		if mkErr := os.Mkdir(dir, dirPerm); mkErr != nil {
			if os.IsExist(mkErr) {
				continue
			}
			return "", fmt.Errorf("bundle: create directory: %w", mkErr)
		}

		indexPath := filepath.Join(dir, indexFileName)
		if writeErr := os.WriteFile(indexPath, []byte(html), filePerm); writeErr != nil {
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("bundle: write index: %w", writeErr)
		}

		return id, nil
	}
	return "", fmt.Errorf("bundle: could not allocate a unique bundle id")
}

// Path returns the on-disk path to a bundle's index.html. It does not
// verify the bundle exists.
func (s *Store) Path(id string) string {
	return filepath.Join(s.path(id), indexFileName)
}

// Exists reports whether a bundle directory was successfully created for id.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Remove deletes a bundle directory and its contents. Used to compensate a
// Worker failure that occurs after Create but before the job record is
// sealed as completed.
func (s *Store) Remove(id string) error {
	if err := os.RemoveAll(s.path(id)); err != nil {
		return fmt.Errorf("bundle: remove %q: %w", id, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.root, id)
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps rendered artifacts on the local filesystem and hands back
// a stable path used as the download reference.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the artifact under a uuid-prefixed name so repeated runs of
// the same schedule never overwrite each other.
func (s *LocalStore) Save(fileName string, content []byte) (string, int64, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s", uuid.NewString()[:8], fileName))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, int64(len(content)), nil
}

// Open returns the stored bytes for a download reference.
func (s *LocalStore) Open(path string) ([]byte, error) {
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, filepath.Clean(s.dir)+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact path outside store: %s", path)
	}
	return os.ReadFile(clean)
}

package backendtest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// screenshotStore keeps uploaded payment screenshots on the local filesystem
type screenshotStore struct {
	dir string
}

func newScreenshotStore(dir string) (*screenshotStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return &screenshotStore{dir: dir}, nil
}

// Save writes the upload under a fresh key that keeps the original extension
func (s *screenshotStore) Save(filename string, r io.Reader) (string, error) {
	key := uuid.NewString() + filepath.Ext(filename)

	file, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return key, nil
}

func (s *screenshotStore) Open(key string) (io.ReadCloser, error) {
	// keys are generated by Save and never contain separators
	if filepath.Base(key) != key {
		return nil, fmt.Errorf("invalid key %q", key)
	}
	file, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

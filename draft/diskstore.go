package draft

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore is a file-backed Store: one file per key inside a directory.
// Writes go through a temp file and os.Rename so readers never observe a
// partial draft.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the directory if needed and returns a store over it.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating draft directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Path returns the file path backing a key.
func (s *DiskStore) Path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

func (s *DiskStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	return data, nil
}

func (s *DiskStore) Set(key string, value []byte) (err error) {
	tmp, err := os.CreateTemp(s.dir, "draft-*.json.tmp")
	if err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write draft: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	if err = os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

func (s *DiskStore) Delete(key string) error {
	err := os.Remove(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}

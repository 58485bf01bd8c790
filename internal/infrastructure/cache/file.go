package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStorage keeps one JSON file per key in a directory. Writes go to a
// temporary file first and are renamed into place.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageError(err, "open_dir", dir)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Get reads the file for key.
func (f *FileStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageError(err, "read", key)
	}
	return data, true, nil
}

// Put atomically replaces the file for key.
func (f *FileStorage) Put(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".snapshot-*")
	if err != nil {
		return storageError(err, "write", key)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageError(err, "write", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storageError(err, "write", key)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		return storageError(fmt.Errorf("rename snapshot: %w", err), "write", key)
	}
	return nil
}

// Delete removes the file for key. A missing file is not an error.
func (f *FileStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageError(err, "delete", key)
	}
	return nil
}

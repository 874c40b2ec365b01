package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dfryer1193/apodcache/apod/domain"
)

var _ domain.ImageStore = (*FileCache)(nil)

// FileCache stores raw image bytes in a single directory, one file per FileRef.
// It knows nothing about image records.
type FileCache struct {
	dir string
}

// NewFileCache creates dir if needed and returns a cache rooted there
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

// Path returns the on-disk location for fileRef
func (c *FileCache) Path(fileRef string) (string, error) {
	if fileRef == "" || fileRef == "." || fileRef == ".." ||
		filepath.Base(fileRef) != fileRef || strings.ContainsAny(fileRef, `/\`) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidFileRef, fileRef)
	}
	return filepath.Join(c.dir, fileRef), nil
}

// Exists reports whether a file is cached under fileRef. Contents are not checked.
func (c *FileCache) Exists(fileRef string) bool {
	path, err := c.Path(fileRef)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (c *FileCache) Read(fileRef string) ([]byte, error) {
	path, err := c.Path(fileRef)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, fileRef)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Write replaces the file for fileRef. Bytes go to a temp file that is synced
// and renamed into place, so a failed write never leaves a truncated image.
// Empty data produces an empty file.
func (c *FileCache) Write(fileRef string, data []byte) (err error) {
	path, err := c.Path(fileRef)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp image file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync image file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close image file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set image file mode: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move image file into place: %w", err)
	}

	return nil
}

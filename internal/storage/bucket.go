package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath = errors.New("invalid object path")
	ErrNotFound    = errors.New("object not found")
)

// Bucket is a directory-backed object store. Object paths use forward
// slashes and may not leave the root.
type Bucket struct {
	root string
}

func NewBucket(root string) (*Bucket, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket root: %w", err)
	}
	return &Bucket{root: root}, nil
}

// Put writes the object atomically by renaming a temp file into place.
func (b *Bucket) Put(ctx context.Context, objectPath string, r io.Reader) error {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := b.local(clean)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// Open returns the object contents and size. The caller closes the reader.
func (b *Bucket) Open(objectPath string) (io.ReadCloser, int64, error) {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(b.local(clean))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, ErrNotFound
	}
	return f, info.Size(), nil
}

func (b *Bucket) Exists(objectPath string) bool {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(b.local(clean))
	return err == nil && !info.IsDir()
}

func (b *Bucket) local(clean string) string {
	return filepath.Join(b.root, filepath.FromSlash(clean))
}

func cleanPath(p string) (string, error) {
	if p == "" || strings.Contains(p, "\\") || strings.ContainsRune(p, 0) {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" || clean == "." {
		return "", ErrInvalidPath
	}
	return clean, nil
}

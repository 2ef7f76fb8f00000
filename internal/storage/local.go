package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore is a Store rooted at a directory.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at dir. The directory need not exist yet.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: filepath.Clean(dir)}
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// URI implements Store.
func (l *LocalStore) URI(key string) string {
	return l.path(key)
}

// List returns every regular file below prefix, sorted by key. A missing prefix
// yields an empty list.
func (l *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	base := l.path(prefix)
	var objects []Object
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", base, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Open implements Source.
func (l *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Clear removes the directory tree under prefix.
func (l *LocalStore) Clear(_ context.Context, prefix string) error {
	if dirPrefix(prefix) == "" {
		return fmt.Errorf("refusing to clear the store root %s", l.root)
	}
	if err := os.RemoveAll(l.path(prefix)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", prefix, err)
	}
	return nil
}

// Put copies localPath to key through a temp file and a rename, so readers never
// see a partially written file.
func (l *LocalStore) Put(_ context.Context, key, localPath string) error {
	dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to copy %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to chmod %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// FilesystemStore stores documents as files in a billy.Filesystem.
type FilesystemStore struct {
	fs      billy.Filesystem
	resolve func(string) (string, error)
}

var _ Store = &FilesystemStore{}

// NewFilesystemStore creates a store rooted at fs. Keys are paths within fs.
func NewFilesystemStore(fs billy.Filesystem) *FilesystemStore {
	return &FilesystemStore{fs: fs}
}

// NewOSStore creates a store over the host filesystem. Relative keys are
// resolved against the current working directory.
func NewOSStore() *FilesystemStore {
	return &FilesystemStore{
		fs:      osfs.New(string(os.PathSeparator)),
		resolve: filepath.Abs,
	}
}

func (s *FilesystemStore) path(key string) (string, error) {
	if s.resolve == nil {
		return key, nil
	}
	p, err := s.resolve(key)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", key, err)
	}
	return p, nil
}

// Read returns the content of the file at key.
func (s *FilesystemStore) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errors.Join(err, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write truncates and replaces the file at key.
func (s *FilesystemStore) Write(ctx context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	f, err := s.fs.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return nil
}

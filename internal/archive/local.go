package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchive keeps listing snapshots in a local directory. Used in
// development and tests where blob storage is not available.
type LocalArchive struct {
	dir string
}

var _ Archive = (*LocalArchive)(nil)

// NewLocalArchive creates a directory-backed archive
func NewLocalArchive(dir string) (*LocalArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &LocalArchive{dir: dir}, nil
}

func (a *LocalArchive) path(name string) string {
	return filepath.Join(a.dir, filepath.FromSlash(name))
}

// Store writes a snapshot file
func (a *LocalArchive) Store(name string, data []byte) error {
	path := a.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write archive file %s: %w", name, err)
	}
	return nil
}

// Retrieve reads a snapshot file
func (a *LocalArchive) Retrieve(name string) ([]byte, error) {
	data, err := os.ReadFile(a.path(name))
	if err != nil {
		return nil, fmt.Errorf("read archive file %s: %w", name, err)
	}
	return data, nil
}

// List returns snapshot names under a prefix
func (a *LocalArchive) List(prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(a.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(a.dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list archive files: %w", err)
	}
	return names, nil
}

// Delete removes a snapshot file
func (a *LocalArchive) Delete(name string) error {
	if err := os.Remove(a.path(name)); err != nil {
		return fmt.Errorf("delete archive file %s: %w", name, err)
	}
	return nil
}

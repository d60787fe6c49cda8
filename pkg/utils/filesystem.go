// Package utils provides the filesystem collaborator used by the distillation engine
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/poltergeist/distill/pkg/interfaces"
	"github.com/spf13/afero"
)

var _ interfaces.FileSystem = (*FileSystem)(nil)

// FileSystem implements interfaces.FileSystem on top of an afero.Fs
type FileSystem struct {
	fs afero.Fs
	// native is set when fs is the host filesystem, which allows symlink
	// resolution and creation-time updates.
	native bool
}

// NewOSFileSystem returns a FileSystem backed by the host filesystem
func NewOSFileSystem() *FileSystem {
	return &FileSystem{fs: afero.NewOsFs(), native: true}
}

// NewFileSystem wraps an arbitrary afero filesystem
func NewFileSystem(fs afero.Fs) *FileSystem {
	_, native := fs.(*afero.OsFs)
	return &FileSystem{fs: fs, native: native}
}

// Fs returns the underlying afero filesystem
func (f *FileSystem) Fs() afero.Fs {
	return f.fs
}

// Exists checks if a path exists
func (f *FileSystem) Exists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	return err == nil && ok
}

// ListFiles returns the files in directory whose names match pattern.
// Non-recursive listings are sorted by name; recursive ones follow a lexical walk.
func (f *FileSystem) ListFiles(pattern string, recursive bool, directory string) ([]string, error) {
	matcher, err := NewWildcard(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid wildcard %q: %w", pattern, err)
	}

	dir, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}

	var matches []string

	if !recursive {
		entries, err := afero.ReadDir(f.fs, dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !matcher.Match(entry.Name()) {
				continue
			}
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
		return matches, nil
	}

	err = afero.Walk(f.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if matcher.Match(path) {
			matches = append(matches, path)
		}
		return nil
	})

	return matches, err
}

// Copy copies src to dst, creating parent directories. dst must not exist.
func (f *FileSystem) Copy(src, dst string) error {
	sourceFile, err := f.fs.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}
	if sourceInfo.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	if err := f.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	destFile, err := f.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, sourceInfo.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}

	return destFile.Close()
}

// ClearReadOnly makes path writable by its owner
func (f *FileSystem) ClearReadOnly(path string) error {
	info, err := f.fs.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode&0200 != 0 {
		return nil
	}
	return f.fs.Chmod(path, mode|0200)
}

// SetTimestamps stamps path with created and modified.
// Creation time is only written where the host filesystem supports it.
func (f *FileSystem) SetTimestamps(path string, created, modified time.Time) error {
	if err := f.fs.Chtimes(path, modified, modified); err != nil {
		return err
	}
	if f.native {
		return setCreationTime(path, created)
	}
	return nil
}

// CanonicalPath returns the absolute, cleaned form of path with symlinks
// resolved on the host filesystem. Letter case is kept as given.
func (f *FileSystem) CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if f.native {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
	}
	return filepath.Clean(abs), nil
}

// RemoveAll removes a path and all its contents
func (f *FileSystem) RemoveAll(path string) error {
	return f.fs.RemoveAll(path)
}

// ModTime returns the modification time of path
func (f *FileSystem) ModTime(path string) (time.Time, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

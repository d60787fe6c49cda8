// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import "time"

// FileSystem is the filesystem collaborator used by the distillation engine
type FileSystem interface {
	// Exists reports whether path exists at call time.
	Exists(path string) bool
	// ListFiles expands a file name wildcard inside directory. Results are
	// absolute paths in enumeration order.
	ListFiles(pattern string, recursive bool, directory string) ([]string, error)
	// Copy copies src to dst, creating parent directories of dst.
	Copy(src, dst string) error
	SetTimestamps(path string, created, modified time.Time) error
	ClearReadOnly(path string) error
	// CanonicalPath returns the absolute, separator-normalized path with
	// symlinks resolved where the filesystem supports them.
	CanonicalPath(path string) (string, error)
}

// DistillNotifier reports distillation runs to the user
type DistillNotifier interface {
	NotifyDistillStart(session string)
	NotifyDistillSuccess(session string, files int, duration time.Duration)
	NotifyDistillFailure(session string, err error)
}

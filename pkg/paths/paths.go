// Package paths provides the path algebra used when rerooting distilled files
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidArgument indicates a path that is not located under its claimed base
var ErrInvalidArgument = errors.New("invalid argument")

// Normalize converts separators to slashes and cleans the path.
// An empty input stays empty.
func Normalize(path string) string {
	if path == "" {
		return ""
	}
	path = strings.ReplaceAll(path, `\`, "/")
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
}

// HasBase reports whether path is base itself or lives below it.
// The comparison ignores case and separator style.
func HasBase(path, base string) bool {
	_, err := StripBaseDirectory(path, base)
	return err == nil
}

// StripBaseDirectory returns the part of path that follows base.
//
// The returned suffix never starts with a separator and uses the OS separator.
// path == base yields an empty suffix.
func StripBaseDirectory(path, base string) (string, error) {
	normPath := Normalize(path)
	normBase := strings.TrimSuffix(Normalize(base), "/")

	if normBase == "" && strings.HasPrefix(normPath, "/") {
		// Base was the filesystem root.
		return filepath.FromSlash(strings.TrimPrefix(normPath, "/")), nil
	}

	if len(normPath) < len(normBase) || !strings.EqualFold(normPath[:len(normBase)], normBase) {
		return "", fmt.Errorf("%w: %q is not under %q", ErrInvalidArgument, path, base)
	}

	rest := normPath[len(normBase):]
	if rest == "" {
		return "", nil
	}

	// "/data/foo" must not count as being under "/data/fo".
	if rest[0] != '/' {
		return "", fmt.Errorf("%w: %q is not under %q", ErrInvalidArgument, path, base)
	}

	return filepath.FromSlash(rest[1:]), nil
}

// MakeRerootedFilePath moves path from oldBase to newBase, keeping its suffix
func MakeRerootedFilePath(path, oldBase, newBase string) (string, error) {
	suffix, err := StripBaseDirectory(path, oldBase)
	if err != nil {
		return "", err
	}
	return filepath.Join(newBase, suffix), nil
}

// RelativeSlash returns path relative to base in slash form with a leading
// slash, so "/a/b/c" under "/a" becomes "/b/c". Paths outside base are
// returned normalized and rooted.
func RelativeSlash(path, base string) string {
	suffix, err := StripBaseDirectory(path, base)
	if err != nil {
		norm := Normalize(path)
		if !strings.HasPrefix(norm, "/") {
			norm = "/" + norm
		}
		return norm
	}
	return "/" + filepath.ToSlash(suffix)
}

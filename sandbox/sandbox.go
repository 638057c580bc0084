// Package sandbox resolves client-supplied paths against a session's current
// directory and rejects anything that would land above the configured root.
// All checks are lexical: a ".." chain fails even when the path it would
// reach exists on disk.
package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrAboveRoot    = errors.New("cannot go above root")
	ErrNoParent     = errors.New("no parent")
	ErrNotDirectory = errors.New("invalid path or not a directory")
)

// Contains reports whether p is root or a descendant of root.
func Contains(root, p string) bool {
	root = filepath.Clean(root)
	p = filepath.Clean(p)
	if p == root {
		return true
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Join resolves a client-supplied relative component against base. The result
// is cleaned so ".." segments collapse before any containment check.
func Join(base, rel string) string {
	return filepath.Clean(filepath.Join(base, rel))
}

// ResolveDown joins base and rel, then accepts the result only if it stays
// inside root and names an existing directory.
func ResolveDown(root, base, rel string) (string, error) {
	p := Join(base, rel)
	if !Contains(root, p) {
		return "", ErrNotDirectory
	}
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return "", ErrNotDirectory
	}
	return p, nil
}

// ResolveUp returns the parent of base. Navigating above root is forbidden
// unconditionally, even when a parent directory exists on disk.
func ResolveUp(root, base string) (string, error) {
	base = filepath.Clean(base)
	parent := filepath.Dir(base)
	if parent == base {
		return "", ErrNoParent
	}
	if !Contains(root, parent) {
		return "", ErrAboveRoot
	}
	return parent, nil
}

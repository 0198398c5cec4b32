// Package blob owns the on-disk screenshot area. Files live under
// <root>/<agent_id>/<filename> and only the metadata record in the store
// references them; every file must be reachable through exactly one record.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sightline/internal/types"
)

// Store is the screenshot blob area rooted at a configured directory.
type Store struct {
	root string
}

// NewStore creates the blob store, ensuring the root directory exists
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the blob root directory
func (s *Store) Root() string {
	return s.root
}

// Save writes a blob under the agent's subdirectory and returns the
// relative storage path recorded in the metadata store.
func (s *Store) Save(agentID, filename string, data []byte) (string, error) {
	if err := validSegment(agentID); err != nil {
		return "", err
	}
	if err := validSegment(filename); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, agentID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create agent directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return filepath.ToSlash(filepath.Join(agentID, filename)), nil
}

// Remove deletes a blob by its relative storage path. Used as the
// compensating action when the metadata insert fails after the blob was
// written.
func (s *Store) Remove(relPath string) error {
	parts := strings.SplitN(filepath.ToSlash(relPath), "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid storage path: %q", relPath)
	}
	if err := validSegment(parts[0]); err != nil {
		return err
	}
	if err := validSegment(parts[1]); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, parts[0], parts[1])); err != nil {
		return fmt.Errorf("failed to remove blob %s: %w", relPath, err)
	}
	return nil
}

// Resolve returns the absolute path of a stored blob for serving, or
// types.ErrScreenshotNotFound when the file does not exist. Both path
// segments are rejected outright when they carry separators or dot-dot.
func (s *Store) Resolve(agentID, filename string) (string, error) {
	if err := validSegment(agentID); err != nil {
		return "", types.ErrScreenshotNotFound
	}
	if err := validSegment(filename); err != nil {
		return "", types.ErrScreenshotNotFound
	}

	path := filepath.Join(s.root, agentID, filename)
	if _, err := os.Stat(path); err != nil {
		return "", types.ErrScreenshotNotFound
	}
	return path, nil
}

// validSegment rejects path segments that could escape the blob root
func validSegment(segment string) error {
	if segment == "" ||
		strings.Contains(segment, "/") ||
		strings.Contains(segment, "\\") ||
		strings.Contains(segment, "..") {
		return fmt.Errorf("invalid path segment: %q", segment)
	}
	return nil
}

package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/branchreview/internal/redact"
)

// Artifact file names inside the output directory.
const (
	DiffFile   = "git.diff"
	ReviewFile = "review.md"
	HTMLFile   = "review.html"
)

// Store writes run artifacts into one directory.
type Store struct {
	dir      string
	literals []string
}

// New creates a Store rooted at dir, creating it if needed. Every literal
// is scrubbed from written content.
func New(dir string, literals ...string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Store{dir: dir, literals: literals}, nil
}

// Dir returns the output directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns where name is stored.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Write atomically replaces name with content and returns its path.
func (s *Store) Write(name, content string) (string, error) {
	path := s.Path(name)
	data := []byte(redact.Scrub(content, s.literals...))

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

// Remove deletes name, ignoring a missing file.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

package orchestrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store abstracts the location batch sources are discovered in, read
// from, and archived to.
type Store interface {
	// List returns the names of pending batch sources. An error here is
	// structural: the storage root is unreachable.
	List() ([]string, error)

	// Open opens one source for reading.
	Open(name string) (io.ReadCloser, error)

	// Archive moves a processed source out of the pending area under the
	// given archived name.
	Archive(name, archivedName string) error
}

// DirStore is the filesystem Store: pending sources are *.csv files in a
// drop folder, archived ones move to a subdirectory.
type DirStore struct {
	root       string
	archiveDir string
}

// NewDirStore creates a store over the given drop folder. archiveDir is
// relative to the root.
func NewDirStore(root, archiveDir string) *DirStore {
	return &DirStore{root: root, archiveDir: archiveDir}
}

// List returns all pending .csv file names, sorted for a stable order.
func (s *DirStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("store: cannot read input path %s: %w", s.root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Open opens one pending source.
func (s *DirStore) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, name))
}

// Archive renames the source into the archive subdirectory, creating it
// on first use.
func (s *DirStore) Archive(name, archivedName string) error {
	dir := filepath.Join(s.root, s.archiveDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("store: cannot create archive dir %s: %w", dir, err)
	}
	if err := os.Rename(filepath.Join(s.root, name), filepath.Join(dir, archivedName)); err != nil {
		return fmt.Errorf("store: cannot archive %s: %w", name, err)
	}
	return nil
}

package cassette

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store persists cassettes by name.
type Store interface {
	// Load returns the named cassette. A cassette that does not exist yet is
	// returned as a fresh empty one with found == false; any other failure
	// is an error.
	Load(name string) (c *Cassette, found bool, err error)

	// Save persists a cassette.
	Save(c *Cassette) error
}

// FileStore keeps one JSON file per cassette, <name>.json, in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cassette directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the on-disk location of a named cassette.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load implements Store. A missing file is recovered as an empty cassette.
func (s *FileStore) Load(name string) (*Cassette, bool, error) {
	raw, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return NewCassette(name), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cassette %q: %w", name, err)
	}

	var c Cassette
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, fmt.Errorf("failed to parse cassette %q: %w", name, err)
	}
	if c.Name == "" {
		c.Name = name
	}
	return &c, true, nil
}

// Save implements Store.
func (s *FileStore) Save(c *Cassette) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cassette %q: %w", c.Name, err)
	}
	if err := os.WriteFile(s.Path(c.Name), raw, 0600); err != nil {
		return fmt.Errorf("failed to write cassette %q: %w", c.Name, err)
	}
	return nil
}

// List returns the names of all cassettes in the directory.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cassettes: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".json")])
	}
	return names, nil
}

// ExportYAML renders a cassette as YAML for human review.
func ExportYAML(c *Cassette) ([]byte, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to export cassette %q as YAML: %w", c.Name, err)
	}
	return raw, nil
}

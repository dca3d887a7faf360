// Package jsonfile implements ports.Storage as a single JSON document.
// It is the human-readable alternative to the bbolt store, selected with
// "storage": "json" in the project config. Writes go to a temp file in the
// same directory and are renamed over the target, so readers never see a
// partial document. The store is single-process: it takes no file lock.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/corey/codeindex/internal/ports"
)

// ErrCorrupt means the document exists but cannot be decoded.
var ErrCorrupt = errors.New("index file is corrupt")

type document struct {
	Projects map[string]*ports.ProjectIndex `json:"projects"`
}

// Store implements ports.Storage backed by one JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ ports.Storage = (*Store)(nil)

// NewStore returns a store writing to path. The file is created on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{Projects: make(map[string]*ports.ProjectIndex)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if doc.Projects == nil {
		doc.Projects = make(map[string]*ports.ProjectIndex)
	}
	return &doc, nil
}

func (s *Store) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// SaveIndex replaces the stored index for a project. A corrupt document is
// overwritten rather than merged.
func (s *Store) SaveIndex(projectID string, idx *ports.ProjectIndex) error {
	if idx == nil {
		return fmt.Errorf("nil index")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if errors.Is(err, ErrCorrupt) {
		doc, err = &document{Projects: make(map[string]*ports.ProjectIndex)}, nil
	}
	if err != nil {
		return err
	}
	doc.Projects[projectID] = idx
	return s.write(doc)
}

// LoadIndex returns nil, nil when the file or project is absent or the stored
// index has another IndexVersion.
func (s *Store) LoadIndex(projectID string) (*ports.ProjectIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	idx := doc.Projects[projectID]
	if idx == nil || idx.Version != ports.IndexVersion {
		return nil, nil
	}
	if idx.Files == nil {
		idx.Files = make(map[string]*ports.FileIndex)
	}
	idx.Stats = ports.ComputeStats(idx)
	return idx, nil
}

// DeleteProject removes a project. The file is removed once empty.
func (s *Store) DeleteProject(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if errors.Is(err, ErrCorrupt) {
		return os.Remove(s.path)
	}
	if err != nil {
		return err
	}
	if _, ok := doc.Projects[projectID]; !ok {
		return nil
	}
	delete(doc.Projects, projectID)
	if len(doc.Projects) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return s.write(doc)
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}

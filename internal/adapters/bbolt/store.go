// Package bbolt implements the ports.Storage interface using bbolt (embedded B+ tree).
// Each project gets its own top-level bucket holding a JSON "meta" record and a
// "files" sub-bucket with one record per indexed file. Writes are transactional,
// so a crash mid-write cannot corrupt previously committed data.
//
// The bbolt file lock doubles as the cross-process single-writer guard: a second
// process opening the same database fails with ErrLocked after a short timeout.
package bbolt

import (
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/codeindex/internal/ports"
)

var (
	// ErrLocked means another process holds the database open.
	ErrLocked = errors.New("index database is locked by another process")

	// ErrCorrupt means a stored record could not be decoded.
	ErrCorrupt = errors.New("index database is corrupt")
)

// Bucket keys
var (
	bucketFiles = []byte("files")
	keyMeta     = []byte("meta")
)

// OpenTimeout bounds how long NewStore waits for the file lock.
const OpenTimeout = 1 * time.Second

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db          *bolt.DB
	quarantined string
}

var (
	_ ports.Storage     = (*Store)(nil)
	_ ports.FileStorage = (*Store)(nil)
)

// NewStore opens (or creates) a bbolt database at the given path.
// A file bbolt refuses to open is moved aside to <path>.corrupt and a fresh
// database is created in its place; Quarantined reports where it went.
func NewStore(path string) (*Store, error) {
	db, err := open(path)
	if err == nil {
		return &Store{db: db}, nil
	}
	if errors.Is(err, ErrLocked) || errors.Is(err, os.ErrPermission) {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}

	aside := path + ".corrupt"
	if rerr := os.Rename(path, aside); rerr != nil {
		return nil, fmt.Errorf("%w (move aside: %v)", err, rerr)
	}
	db, err = open(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, quarantined: aside}, nil
}

func open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: OpenTimeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("bbolt open: %w: %w", ErrLocked, err)
	}
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return db, nil
}

// Quarantined returns the path a corrupt database was moved to, or "".
func (s *Store) Quarantined() string {
	return s.quarantined
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Size returns the database size in bytes.
func (s *Store) Size() (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Size()
		return nil
	})
	return n, err
}

// Close closes the underlying bbolt database and releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveIndex replaces the stored index for a project in one transaction.
func (s *Store) SaveIndex(projectID string, idx *ports.ProjectIndex) error {
	if idx == nil {
		return fmt.Errorf("nil index")
	}

	meta, err := encodeMeta(idx)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	records := make(map[string][]byte, len(idx.Files))
	for path, fi := range idx.Files {
		data, err := encodeFile(fi)
		if err != nil {
			return err
		}
		records[path] = data
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(projectID)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		proj, err := tx.CreateBucket([]byte(projectID))
		if err != nil {
			return err
		}
		if err := proj.Put(keyMeta, meta); err != nil {
			return err
		}
		fb, err := proj.CreateBucket(bucketFiles)
		if err != nil {
			return err
		}
		for path, data := range records {
			if err := fb.Put([]byte(path), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadIndex retrieves the index for a project.
// Returns nil, nil if no index exists or it was written with another
// IndexVersion. Undecodable records yield an error wrapping ErrCorrupt.
func (s *Store) LoadIndex(projectID string) (*ports.ProjectIndex, error) {
	var idx *ports.ProjectIndex

	err := s.db.View(func(tx *bolt.Tx) error {
		proj := tx.Bucket([]byte(projectID))
		if proj == nil {
			return nil
		}
		raw := proj.Get(keyMeta)
		if raw == nil {
			return fmt.Errorf("%w: missing meta record", ErrCorrupt)
		}
		meta, err := decodeMeta(raw)
		if err != nil {
			return err
		}
		if meta.Version != ports.IndexVersion {
			return nil
		}

		idx = ports.NewProjectIndex(meta.ProjectPath)
		idx.LastIndexed = meta.LastIndexed
		idx.Config = meta.Config

		fb := proj.Bucket(bucketFiles)
		if fb == nil {
			return nil
		}
		// gob copies out of the mmap, so decoded values outlive the tx.
		return fb.ForEach(func(k, v []byte) error {
			fi, err := decodeFile(k, v)
			if err != nil {
				return err
			}
			idx.Files[string(k)] = fi
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if idx != nil {
		idx.Stats = ports.ComputeStats(idx)
	}
	return idx, nil
}

// PutFile inserts or replaces one file record. The project must already have
// been saved with SaveIndex.
func (s *Store) PutFile(projectID string, fi *ports.FileIndex) error {
	data, err := encodeFile(fi)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		fb, err := filesBucket(tx, projectID)
		if err != nil {
			return err
		}
		return fb.Put([]byte(fi.File), data)
	})
}

// DeleteFile removes one file record. Missing records are not an error.
func (s *Store) DeleteFile(projectID string, path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		fb, err := filesBucket(tx, projectID)
		if err != nil {
			return err
		}
		return fb.Delete([]byte(path))
	})
}

func filesBucket(tx *bolt.Tx, projectID string) (*bolt.Bucket, error) {
	proj := tx.Bucket([]byte(projectID))
	if proj == nil || proj.Get(keyMeta) == nil {
		return nil, fmt.Errorf("project %q has no saved index", projectID)
	}
	return proj.CreateBucketIfNotExists(bucketFiles)
}

// DeleteProject removes all data for a project.
// Idempotent: deleting a nonexistent project is not an error.
func (s *Store) DeleteProject(projectID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(projectID)); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}

// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// Storage persists the project index to durable storage.
// The backing store is project-scoped: each projectID gets its own
// namespace. Concurrent reads are safe; writes are serialized by the adapter.
//
// Crash safety: SaveIndex must be transactional. A crash mid-write must not
// corrupt previously committed data.
type Storage interface {
	// SaveIndex persists the full index for a project.
	// Overwrites any prior index for this projectID.
	SaveIndex(projectID string, idx *ProjectIndex) error

	// LoadIndex retrieves the index for a project.
	// Returns nil, nil if no index exists (fresh project). A stored index that
	// cannot be decoded is reported as an error; callers start empty.
	LoadIndex(projectID string) (*ProjectIndex, error)

	// DeleteProject removes all data for a project.
	// Idempotent: deleting a nonexistent project is not an error.
	DeleteProject(projectID string) error

	// Close releases the underlying resources (file handles, locks).
	Close() error
}

// FileStorage is implemented by stores that can update a single file entry
// without rewriting the whole index. The watcher path uses it when available.
type FileStorage interface {
	PutFile(projectID string, fi *FileIndex) error
	DeleteFile(projectID string, path string) error
}

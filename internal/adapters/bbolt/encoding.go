// Record encoding for the bbolt store.
//
// Each value in a project's files bucket is one FileIndex encoded as:
//
//	format: byte   (formatGob)
//	body:   gob(FileIndex)
//
// The meta record is plain JSON so it can be inspected with the bbolt CLI.
package bbolt

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corey/codeindex/internal/ports"
)

// formatGob tags a gob-encoded record body.
const formatGob byte = 1

// metaRecord is everything in a ProjectIndex except the files.
type metaRecord struct {
	Version     int               `json:"version"`
	ProjectPath string            `json:"projectPath"`
	LastIndexed time.Time         `json:"lastIndexed"`
	Config      ports.IndexConfig `json:"config"`
}

func encodeMeta(idx *ports.ProjectIndex) ([]byte, error) {
	return json.Marshal(metaRecord{
		Version:     idx.Version,
		ProjectPath: idx.ProjectPath,
		LastIndexed: idx.LastIndexed,
		Config:      idx.Config,
	})
}

func decodeMeta(data []byte) (metaRecord, error) {
	var m metaRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: meta: %v", ErrCorrupt, err)
	}
	return m, nil
}

// encodeFile encodes one FileIndex. gob keeps the per-file records about half
// the size of JSON, which matters for reference-heavy files.
func encodeFile(fi *ports.FileIndex) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(formatGob)
	if err := gob.NewEncoder(&buf).Encode(fi); err != nil {
		return nil, fmt.Errorf("encode %s: %w", fi.File, err)
	}
	return buf.Bytes(), nil
}

// decodeFile decodes a record written by encodeFile. Unknown formats and
// truncated bodies are reported as ErrCorrupt.
func decodeFile(key, data []byte) (*ports.FileIndex, error) {
	if len(data) == 0 || data[0] != formatGob {
		return nil, fmt.Errorf("%w: file %q: unknown record format", ErrCorrupt, key)
	}
	var fi ports.FileIndex
	if err := gob.NewDecoder(bytes.NewReader(data[1:])).Decode(&fi); err != nil {
		return nil, fmt.Errorf("%w: file %q: %v", ErrCorrupt, key, err)
	}
	// gob drops empty slices
	if fi.Symbols == nil {
		fi.Symbols = []ports.Symbol{}
	}
	if fi.Imports == nil {
		fi.Imports = []ports.Import{}
	}
	if fi.Exports == nil {
		fi.Exports = []ports.Export{}
	}
	if fi.References == nil {
		fi.References = []ports.Reference{}
	}
	return &fi, nil
}

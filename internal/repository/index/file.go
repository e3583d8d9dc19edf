package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/regassist/internal/domain"
	"github.com/kailas-cloud/regassist/internal/fsutil"
)

// ReadFile decodes an index file. A missing file is reported with os.ErrNotExist.
func ReadFile(path string) (domain.IndexFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return domain.IndexFile{}, fmt.Errorf("read index: %w", err)
	}
	var idx domain.IndexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return domain.IndexFile{}, fmt.Errorf("decode index %s: %w", path, err)
	}
	return idx, nil
}

// ReadOrEmpty is ReadFile that treats a missing file as an empty index for the given model.
func ReadOrEmpty(path, model string) (domain.IndexFile, error) {
	idx, err := ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.IndexFile{Model: model}, nil
	}
	return idx, err
}

// WriteFile stores an index atomically: readers see either the old or the new file, never a partial one.
func WriteFile(path string, idx domain.IndexFile) error {
	if idx.Index == nil {
		idx.Index = []domain.EmbeddingRecord{}
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// FileStore reads and writes one index file for the index builder.
type FileStore struct {
	path string
}

// NewFileStore creates a store over the index file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the index file location.
func (s *FileStore) Path() string { return s.path }

// Read returns the stored index, or an empty one for model when the file does not exist yet.
func (s *FileStore) Read(model string) (domain.IndexFile, error) {
	return ReadOrEmpty(s.path, model)
}

// Write replaces the stored index atomically.
func (s *FileStore) Write(idx domain.IndexFile) error {
	return WriteFile(s.path, idx)
}

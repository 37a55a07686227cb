package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps verdicts in a single JSON object on disk, rewriting the
// whole file on every update. Suits the single-user annotation workflow the
// server exists for.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]Rating
}

// NewFileStore loads any existing verdicts from path; a missing file starts
// an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ratings path is required")
	}
	s := &FileStore{path: path, entries: make(map[string]Rating)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ratings file: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("decode ratings file: %w", err)
	}
	return s, nil
}

// Set records the verdict and persists the full set.
func (s *FileStore) Set(_ context.Context, bookID string, rating Rating) (int, error) {
	if bookID == "" {
		return 0, fmt.Errorf("book id is required")
	}
	if err := rating.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[bookID] = rating
	if err := s.persistLocked(); err != nil {
		return 0, err
	}
	return len(s.entries), nil
}

// All returns a copy of the stored verdicts.
func (s *FileStore) All(context.Context) (map[string]Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Rating, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Close implements Store; the file store holds no open resources.
func (s *FileStore) Close() error {
	return nil
}

// persistLocked writes the verdict set via a staged temp file so a crash
// mid-write cannot truncate existing ratings. Caller holds s.mu.
func (s *FileStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ratings dir: %w", err)
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ratings: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("stage ratings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write ratings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ratings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("publish ratings file: %w", err)
	}
	return nil
}

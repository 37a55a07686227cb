package books

import "sync"

// Store holds the authoritative book collection for the duration of a run.
// Workers read immutable fields; cover URLs are written only through
// SetCoverURL by the scheduler's single collecting point.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*Book
	order []string
}

// NewStore builds a Store from an ordered book slice. Duplicate IDs keep the
// first occurrence.
func NewStore(list []*Book) *Store {
	s := &Store{byID: make(map[string]*Book, len(list))}
	for _, b := range list {
		if b == nil || b.ID == "" {
			continue
		}
		if _, exists := s.byID[b.ID]; exists {
			continue
		}
		s.byID[b.ID] = b
		s.order = append(s.order, b.ID)
	}
	return s
}

// Len returns the number of books held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get fetches a book by ID.
func (s *Store) Get(id string) (*Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[id]
	return b, ok
}

// List returns the books in insertion order.
func (s *Store) List() []*Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Book, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// SetCoverURL records a resolved cover for the given book. A cover URL only
// transitions from absent to present: empty URLs and repeat writes are
// ignored, as are unknown IDs.
func (s *Store) SetCoverURL(id, url string) bool {
	if url == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok || b.CoverURL != "" {
		return false
	}
	b.CoverURL = url
	return true
}

// CountWithCovers returns how many books currently have a cover URL.
func (s *Store) CountWithCovers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.byID {
		if b.CoverURL != "" {
			n++
		}
	}
	return n
}

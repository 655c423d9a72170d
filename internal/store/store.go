package store

import (
	"errors"
	"sync"
	"time"
)

var ErrDuplicateID = errors.New("record id already exists")

// Record is the outcome of one successful generation. Records are written
// once and never updated.
type Record struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Prompt       string    `json:"prompt"`
	BusinessName string    `json:"business_name"`
	Tagline      string    `json:"tagline"`
	Festival     string    `json:"festival"`
	Style        string    `json:"style"`
	AspectRatio  string    `json:"aspect_ratio"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store keeps records for the lifetime of the process. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
}

func New() *Store {
	return &Store{
		records: make(map[string]Record),
	}
}

func (s *Store) Put(rec Record) error {
	if rec.ID == "" {
		return errors.New("record id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return ErrDuplicateID
	}
	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	return rec, ok
}

// List returns every record in insertion order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

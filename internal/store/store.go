package store

import (
	"sync"
	"time"

	"electrobot/catalog/internal/domain"
	"electrobot/catalog/internal/index"
)

// Snapshot pairs a product list with the index built from it. Snapshots are
// immutable once published.
type Snapshot struct {
	Products  []domain.Product
	Index     *index.Index
	FetchedAt time.Time

	byID map[string]int
}

func NewSnapshot(products []domain.Product, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		Products:  products,
		Index:     index.Build(products),
		FetchedAt: fetchedAt,
		byID:      make(map[string]int, len(products)),
	}
	for i, p := range products {
		if _, dup := s.byID[p.ID]; !dup {
			s.byID[p.ID] = i
		}
	}
	return s
}

func (s *Snapshot) Product(id string) (domain.Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.Products[i], true
}

func (s *Snapshot) Len() int {
	return len(s.Products)
}

// Meta is the fetch bookkeeping used for throttling, conditional requests and
// change detection.
type Meta struct {
	LastFetch     time.Time
	ETag          string
	LastModified  string
	LastItemCount int
	LastChange    time.Time
}

// Store holds the current catalog snapshot. Readers never see a product list
// without its matching index.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
	meta Meta
}

func New() *Store {
	return &Store{snap: NewSnapshot(nil, time.Time{})}
}

func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Meta() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Update runs fn under the write lock. fn edits a copy of the metadata, which
// is committed whatever fn returns; a non-nil snapshot replaces the current
// one only when fn succeeds.
func (s *Store) Update(fn func(current *Snapshot, meta *Meta) (*Snapshot, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.meta
	next, err := fn(s.snap, &meta)
	s.meta = meta
	if err != nil {
		return err
	}
	if next != nil {
		s.snap = next
	}
	return nil
}

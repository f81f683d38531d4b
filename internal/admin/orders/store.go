package orders

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Store holds the current set of orders for a dashboard session. It keeps insertion
// order, which recent-order views depend on, and never holds two records with the same id.
type Store struct {
	mu     sync.RWMutex
	orders []Order
	index  map[string]int
	loaded bool
}

// Patch describes the mutable fields of an order. Nil fields are left untouched.
// Amount, creation time and line items are immutable once the order exists.
type Patch struct {
	Status       *Status
	CustomerName *string
	Phone        *string
	Email        *string
	Address      *string
}

// LoadReport summarises a Load call.
type LoadReport struct {
	Loaded     int
	Duplicates int
	Dropped    []error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: map[string]int{}}
}

// Load replaces the entire set. Records without an id are dropped and reported with
// ErrMalformedRecord; a later record with an already seen id replaces the earlier one in
// place. Negative amounts are clamped to zero.
func (s *Store) Load(records []Order) LoadReport {
	report := LoadReport{}
	next := make([]Order, 0, len(records))
	index := make(map[string]int, len(records))

	for i, record := range records {
		id := strings.TrimSpace(record.ID)
		if id == "" {
			report.Dropped = append(report.Dropped, fmt.Errorf("%w: record %d has no id", ErrMalformedRecord, i))
			continue
		}
		record.ID = id
		record = normaliseRecord(record)
		if pos, ok := index[id]; ok {
			next[pos] = record
			report.Duplicates++
			continue
		}
		index[id] = len(next)
		next = append(next, record)
	}
	report.Loaded = len(next)

	s.mu.Lock()
	s.orders = next
	s.index = index
	s.loaded = true
	s.mu.Unlock()
	return report
}

// Loaded reports whether Load has been called at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Apply updates the record matching id. The store is unchanged when the id is unknown.
func (s *Store) Apply(id string, patch Patch) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	updated := s.orders[pos]
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	assignString(&updated.CustomerName, patch.CustomerName)
	assignString(&updated.Phone, patch.Phone)
	assignString(&updated.Email, patch.Email)
	assignString(&updated.Address, patch.Address)
	s.orders[pos] = updated
	return updated.clone(), nil
}

// Remove deletes the record matching id and returns it.
func (s *Store) Remove(id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	removed := s.orders[pos]
	s.orders = append(s.orders[:pos:pos], s.orders[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.orders); i++ {
		s.index[s.orders[i].ID] = i
	}
	return removed, nil
}

// Get returns a copy of the record matching id.
func (s *Store) Get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return Order{}, false
	}
	return s.orders[pos].clone(), true
}

// Snapshot returns a copy of every record in insertion order.
func (s *Store) Snapshot() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, len(s.orders))
	for i, order := range s.orders {
		out[i] = order.clone()
	}
	return out
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func normaliseRecord(record Order) Order {
	if math.IsNaN(record.TotalAmount) || record.TotalAmount < 0 {
		record.TotalAmount = 0
	}
	return record.clone()
}

func assignString(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

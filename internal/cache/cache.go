// Package cache holds the records the collector has built so the repo can
// fetch them by exact name.
package cache

import (
	"github.com/roach88/datacollector/internal/ndn"
)

// Store is an in-memory record store keyed by exact name. Records are
// kept until the process exits unless a capacity is set, in which case
// the oldest insertion is evicted first.
//
// Store is not safe for concurrent use; the collector only touches it
// from its event loop.
type Store struct {
	capacity int
	records  map[string]*ndn.Data
	order    []string
}

// New returns a Store. capacity <= 0 means unbounded.
func New(capacity int) *Store {
	return &Store{
		capacity: capacity,
		records:  make(map[string]*ndn.Data),
	}
}

// Insert stores d under its name, replacing any record with the same
// name. It returns the record evicted to make room, if any.
func (s *Store) Insert(d *ndn.Data) (evicted *ndn.Data) {
	key := d.Name.Key()
	if _, ok := s.records[key]; ok {
		s.records[key] = d
		return nil
	}
	if s.capacity > 0 && len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order[0] = ""
		s.order = s.order[1:]
		evicted = s.records[oldest]
		delete(s.records, oldest)
	}
	s.records[key] = d
	s.order = append(s.order, key)
	return evicted
}

// Find returns the record named exactly name.
func (s *Store) Find(name ndn.Name) (*ndn.Data, bool) {
	d, ok := s.records[name.Key()]
	return d, ok
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	return len(s.records)
}

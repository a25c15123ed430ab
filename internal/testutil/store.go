package testutil

import (
	"context"
	"sync"

	"github.com/roach88/movieme/internal/movie"
)

// RecordStore is an in-memory engine.RecordStore with error injection and
// call counting.
type RecordStore struct {
	mu      sync.Mutex
	records []movie.Record
	found   bool
	saves   int

	LoadErr error
	SaveErr error
}

// NewRecordStore creates a store. With no records it reports found=false
// until the first Save; with records (even zero-length) it starts populated.
func NewRecordStore(records ...[]movie.Record) *RecordStore {
	s := &RecordStore{}
	if len(records) > 0 {
		s.records = movie.Clone(records[0])
		s.found = true
	}
	return s
}

func (s *RecordStore) Load(context.Context) ([]movie.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, false, s.LoadErr
	}
	if !s.found {
		return nil, false, nil
	}
	return movie.Clone(s.records), true, nil
}

func (s *RecordStore) Save(_ context.Context, records []movie.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.records = movie.Clone(records)
	s.found = true
	s.saves++
	return nil
}

// Saved returns the persisted collection and whether anything was saved.
func (s *RecordStore) Saved() ([]movie.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return movie.Clone(s.records), s.found
}

// Saves counts successful Save calls.
func (s *RecordStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/movieme/internal/metrics"
	"github.com/roach88/movieme/internal/movie"
)

// DefaultKey is the key the collection is stored under.
const DefaultKey = "movies"

// ErrWatchUnsupported is returned by Watch when the backend cannot report
// external changes.
var ErrWatchUnsupported = errors.New("backend does not support change watching")

// Backend is an opaque blob store keyed by string.
type Backend interface {
	// Driver names the backend for logs and metrics.
	Driver() string
	// Get returns the value of key. found is false if key was never written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Put replaces the value of key.
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Watcher is implemented by backends that can report changes made by other
// processes. onChange is called from the watching goroutine.
type Watcher interface {
	Watch(ctx context.Context, key string, onChange func()) error
}

// Store reads and writes the movie collection through a Backend.
type Store struct {
	backend Backend
	key     string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger for load and save events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics reports loads and saves to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New wraps a backend.
func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		key:     DefaultKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the collection. found is false when nothing has been saved yet
// or the stored blob is empty or null.
func (s *Store) Load(ctx context.Context) (records []movie.Record, found bool, err error) {
	defer func() { s.metrics.ObserveStore(s.backend.Driver(), "load", err) }()

	blob, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, false, fmt.Errorf("load %s from %s: %w", s.key, s.backend.Driver(), err)
	}
	if !found {
		s.logger.Debug("store empty", "driver", s.backend.Driver(), "key", s.key)
		return nil, false, nil
	}

	records, err = movie.Decode(blob)
	if err != nil {
		return nil, false, fmt.Errorf("load %s from %s: %w", s.key, s.backend.Driver(), err)
	}
	if records == nil {
		s.logger.Debug("store holds no collection", "driver", s.backend.Driver(), "key", s.key)
		return nil, false, nil
	}
	s.logger.Debug("collection loaded", "driver", s.backend.Driver(), "key", s.key, "movies", len(records))
	return records, true, nil
}

// Save replaces the stored collection.
func (s *Store) Save(ctx context.Context, records []movie.Record) (err error) {
	defer func() { s.metrics.ObserveStore(s.backend.Driver(), "save", err) }()

	blob, err := movie.Encode(records)
	if err != nil {
		return fmt.Errorf("save %s to %s: %w", s.key, s.backend.Driver(), err)
	}
	if err := s.backend.Put(ctx, s.key, blob); err != nil {
		return fmt.Errorf("save %s to %s: %w", s.key, s.backend.Driver(), err)
	}
	s.logger.Debug("collection saved", "driver", s.backend.Driver(), "key", s.key, "movies", len(records))
	return nil
}

// Watch calls onChange whenever another process rewrites the collection.
// Blocks until ctx is done. Returns ErrWatchUnsupported for backends that
// cannot observe external writes.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	w, ok := s.backend.(Watcher)
	if !ok {
		return fmt.Errorf("%s: %w", s.backend.Driver(), ErrWatchUnsupported)
	}
	return w.Watch(ctx, s.key, onChange)
}

// Driver names the underlying backend.
func (s *Store) Driver() string {
	return s.backend.Driver()
}

// Key returns the key the collection is stored under.
func (s *Store) Key() string {
	return s.key
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

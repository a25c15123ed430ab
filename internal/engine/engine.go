package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/metrics"
	"github.com/roach88/movieme/internal/movie"
)

// ListTarget is the rendering target of the movie list.
const ListTarget = "movies-list"

// RecordStore persists the whole collection.
// Load reports found=false when nothing has been saved yet.
type RecordStore interface {
	Load(ctx context.Context) ([]movie.Record, bool, error)
	Save(ctx context.Context, records []movie.Record) error
}

// ListRenderer draws the collection as a text list, one line per record
// (see movie.FormatListItem).
type ListRenderer interface {
	RenderList(ctx context.Context, records []movie.Record) error
}

// ChartSyncer brings every chart up to date with a transformed set.
// Implemented by *chart.Controller.
type ChartSyncer interface {
	SyncAll(set chart.Set) error
}

// State is the application state owned by the engine.
type State struct {
	Movies []movie.Record
}

// Cycle describes a completed update cycle.
type Cycle struct {
	Op     Op             `json:"op"`
	Seq    int64          `json:"seq"`
	Token  string         `json:"cycle"`
	Movies []movie.Record `json:"movies"`
}

// Engine runs update cycles against one collection.
//
// Thread-safety model:
//   - Enqueue, Do and Snapshot: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Start, Add, Reset, Refresh: serialized by an internal mutex
type Engine struct {
	store  RecordStore
	list   ListRenderer
	charts ChartSyncer

	clock   SeqClock
	tokens  TokenGenerator
	queue   *eventQueue
	logger  *slog.Logger
	metrics *metrics.Metrics

	cycleMu sync.Mutex // one cycle at a time

	stateMu sync.RWMutex
	state   State
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics reports mutations, cycles and the collection size to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock replaces the logical clock.
func WithClock(c SeqClock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTokenGenerator replaces the UUIDv7 cycle token generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.tokens = g
		}
	}
}

// New creates an engine with an empty state. Call Start (directly or as an
// event) before serving the collection.
func New(s RecordStore, list ListRenderer, charts ChartSyncer, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		list:   list,
		charts: charts,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		queue:  newEventQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return State{Movies: movie.Clone(e.state.Movies)}
}

// Start loads the collection. If the store has nothing, the default dataset
// is saved. Then the list and charts are rendered.
func (e *Engine) Start(ctx context.Context) (Cycle, error) {
	return e.cycle(ctx, OpStart, func(ctx context.Context, _ []movie.Record) ([]movie.Record, bool, error) {
		records, found, err := e.store.Load(ctx)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return movie.Defaults(), true, nil
		}
		return records, false, nil
	})
}

// Add prepends r to the collection, saves it and redraws.
func (e *Engine) Add(ctx context.Context, r movie.Record) (Cycle, error) {
	return e.cycle(ctx, OpAdd, func(_ context.Context, current []movie.Record) ([]movie.Record, bool, error) {
		e.metrics.ObserveMutation(string(OpAdd))
		return movie.Prepend(current, r), true, nil
	})
}

// Reset replaces the collection with the default dataset, saves it and
// redraws.
func (e *Engine) Reset(ctx context.Context) (Cycle, error) {
	return e.cycle(ctx, OpReset, func(context.Context, []movie.Record) ([]movie.Record, bool, error) {
		e.metrics.ObserveMutation(string(OpReset))
		return movie.Defaults(), true, nil
	})
}

// Refresh reloads the collection from the store and redraws without saving.
// An empty store yields the default dataset.
func (e *Engine) Refresh(ctx context.Context) (Cycle, error) {
	return e.cycle(ctx, OpRefresh, func(ctx context.Context, _ []movie.Record) ([]movie.Record, bool, error) {
		records, found, err := e.store.Load(ctx)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return movie.Defaults(), false, nil
		}
		return records, false, nil
	})
}

// step computes the next collection from the current one and reports whether
// it must be saved.
type step func(ctx context.Context, current []movie.Record) (next []movie.Record, save bool, err error)

// cycle runs one update cycle. The in-memory state is replaced before the
// save, so a failed save leaves the new state in place without rollback.
func (e *Engine) cycle(ctx context.Context, op Op, next step) (c Cycle, err error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	seq, token := e.clock.Next(), e.tokens.Generate()
	c = Cycle{Op: op, Seq: seq, Token: token}
	log := e.logger.With("op", op, "seq", seq, "cycle", token)
	defer func() {
		e.metrics.ObserveCycle(string(op), err)
		if err != nil {
			err = &CycleError{Op: op, Seq: seq, Token: token, Err: err}
		}
	}()

	records, save, err := next(ctx, e.Snapshot().Movies)
	if err != nil {
		return Cycle{}, err
	}

	e.stateMu.Lock()
	e.state = State{Movies: records}
	e.stateMu.Unlock()
	e.metrics.SetMovies(len(records))
	c.Movies = movie.Clone(records)

	if save {
		if err := e.store.Save(ctx, records); err != nil {
			return Cycle{}, err
		}
	}

	if err := e.list.RenderList(ctx, movie.Clone(records)); err != nil {
		return Cycle{}, fmt.Errorf("render %s: %w", ListTarget, err)
	}
	if err := e.charts.SyncAll(chart.Transform(records)); err != nil {
		return Cycle{}, err
	}

	log.Debug("cycle complete", "movies", len(records), "saved", save)
	return c, nil
}

// Enqueue submits an event for the Run loop without waiting.
// Returns false if the loop has stopped.
func (e *Engine) Enqueue(ev Event) bool {
	ev.reply = nil
	return e.queue.Enqueue(ev)
}

// Do submits an event to the Run loop and waits for its cycle to finish.
func (e *Engine) Do(ctx context.Context, ev Event) (Cycle, error) {
	reply := make(chan outcome, 1)
	ev.reply = reply
	if !e.queue.Enqueue(ev) {
		return Cycle{}, ErrStopped
	}

	select {
	case <-ctx.Done():
		return Cycle{}, ctx.Err()
	case o := <-reply:
		return o.cycle, o.err
	}
}

// QueueLen returns the number of events waiting for the loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop is called.
//
// A failed cycle is logged and the loop continues with the next event.
// Events still queued when the loop stops are answered with ErrStopped.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.handle(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.drain(e.queue.Close())
			return ctx.Err()

		case _, open := <-e.queue.Wait():
			if !open {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run processes nothing further and returns.
// Events still queued are answered with ErrStopped.
func (e *Engine) Stop() {
	e.drain(e.queue.Close())
}

func (e *Engine) handle(ctx context.Context, ev Event) {
	c, err := e.process(ctx, ev)
	if err != nil {
		e.logger.Error("cycle failed", "op", ev.Op, "error", err)
	}
	if ev.reply != nil {
		ev.reply <- outcome{cycle: c, err: err}
	}
}

func (e *Engine) process(ctx context.Context, ev Event) (Cycle, error) {
	switch ev.Op {
	case OpStart:
		return e.Start(ctx)
	case OpAdd:
		return e.Add(ctx, ev.Record)
	case OpReset:
		return e.Reset(ctx)
	case OpRefresh:
		return e.Refresh(ctx)
	default:
		return Cycle{}, fmt.Errorf("unknown event op %q", ev.Op)
	}
}

func (e *Engine) drain(pending []Event) {
	for _, ev := range pending {
		if ev.reply != nil {
			ev.reply <- outcome{err: ErrStopped}
		}
	}
}

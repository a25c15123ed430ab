package chart

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/movieme/internal/metrics"
)

// State is the lifecycle state of one chart kind.
type State int

const (
	// StateAbsent means no instance exists for the kind yet.
	StateAbsent State = iota
	// StatePresent means the kind has a live instance.
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	default:
		return "unknown"
	}
}

// Controller keeps at most one live instance per chart kind.
//
// Instances are created lazily on the first Sync of their kind and are never
// destroyed. Thread-safe, although the engine only calls it from its event loop.
type Controller struct {
	mu        sync.Mutex
	renderer  Renderer
	instances map[Kind]Instance
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics reports state transitions to m.
func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// NewController creates a controller with every kind Absent.
func NewController(r Renderer, opts ...ControllerOption) *Controller {
	c := &Controller{
		renderer:  r,
		instances: make(map[Kind]Instance, len(Kinds)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sync brings the chart of the given kind up to date with data.
//
// Absent: the instance is created on the kind's target with the kind's style
// and the kind becomes Present. Present: the instance's data is replaced and
// a redraw is requested. If creation fails the kind stays Absent.
func (c *Controller) Sync(kind Kind, data Data) error {
	if !kind.Valid() {
		return fmt.Errorf("sync: %w: %q", ErrUnknownKind, kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[kind]
	if !ok {
		created, err := c.renderer.Create(kind.Target(), NewConfig(kind, data))
		if err != nil {
			return fmt.Errorf("create %s chart: %w", kind, err)
		}
		c.instances[kind] = created
		c.metrics.ObserveChartSync(string(kind), metrics.TransitionCreated)
		c.logger.Debug("chart created", "kind", kind, "target", kind.Target())
		return nil
	}

	inst.SetData(data)
	if err := inst.Update(); err != nil {
		return fmt.Errorf("update %s chart: %w", kind, err)
	}
	c.metrics.ObserveChartSync(string(kind), metrics.TransitionUpdated)
	c.logger.Debug("chart updated", "kind", kind, "target", kind.Target())
	return nil
}

// SyncAll syncs every kind in Kinds order, stopping at the first error.
func (c *Controller) SyncAll(set Set) error {
	for _, k := range Kinds {
		if err := c.Sync(k, set.For(k)); err != nil {
			return err
		}
	}
	return nil
}

// State returns the lifecycle state of a kind.
func (c *Controller) State(kind Kind) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.instances[kind]; ok {
		return StatePresent
	}
	return StateAbsent
}

// Instance returns the live instance of a kind, if any.
func (c *Controller) Instance(kind Kind) (Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.instances[kind]
	return inst, ok
}

// Len returns the number of live instances.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances)
}

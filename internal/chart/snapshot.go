package chart

import (
	"fmt"
	"sync"
)

// Frame is one rendered state of a target.
// Revision starts at 1 on creation and grows by one per redraw.
type Frame struct {
	Target   string `json:"target"`
	Revision int64  `json:"revision"`
	Config   Config `json:"config"`
}

// FrameObserver receives every frame after it is recorded.
// It is called without the renderer's lock held.
type FrameObserver func(Frame)

// SnapshotRenderer is a Renderer that records the latest configuration of
// each target instead of drawing it. The set of targets is fixed at
// construction, standing in for the canvases of the host document.
type SnapshotRenderer struct {
	mu       sync.RWMutex
	targets  []string
	known    map[string]bool
	frames   map[string]Frame
	observer FrameObserver
}

// NewSnapshotRenderer creates a renderer for the given targets.
// observer may be nil.
func NewSnapshotRenderer(targets []string, observer FrameObserver) *SnapshotRenderer {
	known := make(map[string]bool, len(targets))
	for _, t := range targets {
		known[t] = true
	}
	return &SnapshotRenderer{
		targets:  append([]string(nil), targets...),
		known:    known,
		frames:   make(map[string]Frame, len(targets)),
		observer: observer,
	}
}

// Create binds cfg to target and records the first frame.
func (r *SnapshotRenderer) Create(target string, cfg Config) (Instance, error) {
	r.mu.Lock()
	if !r.known[target] {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, target)
	}
	if _, ok := r.frames[target]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrTargetInUse, target)
	}
	frame := r.recordLocked(target, cfg)
	r.mu.Unlock()

	r.notify(frame)
	return &snapshotInstance{renderer: r, target: target, cfg: cfg}, nil
}

// Snapshot returns the latest frame of every drawn target in target order.
func (r *SnapshotRenderer) Snapshot() []Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	frames := make([]Frame, 0, len(r.frames))
	for _, t := range r.targets {
		if f, ok := r.frames[t]; ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Frame returns the latest frame of one target.
func (r *SnapshotRenderer) Frame(target string) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.frames[target]
	return f, ok
}

func (r *SnapshotRenderer) redraw(target string, cfg Config) {
	r.mu.Lock()
	frame := r.recordLocked(target, cfg)
	r.mu.Unlock()
	r.notify(frame)
}

func (r *SnapshotRenderer) recordLocked(target string, cfg Config) Frame {
	frame := Frame{
		Target:   target,
		Revision: r.frames[target].Revision + 1,
		Config:   cfg,
	}
	r.frames[target] = frame
	return frame
}

func (r *SnapshotRenderer) notify(f Frame) {
	if r.observer != nil {
		r.observer(f)
	}
}

type snapshotInstance struct {
	renderer *SnapshotRenderer
	target   string

	mu  sync.Mutex
	cfg Config
}

func (i *snapshotInstance) SetData(data Data) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cfg.Data = data
}

func (i *snapshotInstance) Update() error {
	i.mu.Lock()
	cfg := i.cfg
	i.mu.Unlock()
	i.renderer.redraw(i.target, cfg)
	return nil
}

func (i *snapshotInstance) Config() Config {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cfg
}

package testutil

import (
	"context"
	"sync"

	"github.com/roach88/movieme/internal/movie"
)

// ListRenderer records every list render as formatted lines.
// Satisfies engine.ListRenderer.
type ListRenderer struct {
	mu      sync.Mutex
	renders [][]string
	Err     error // returned from RenderList when set
}

func (r *ListRenderer) RenderList(_ context.Context, records []movie.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.renders = append(r.renders, movie.FormatList(records))
	return nil
}

// Renders returns how many times the list was drawn.
func (r *ListRenderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renders)
}

// Lines returns the most recent render, or nil.
func (r *ListRenderer) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.renders) == 0 {
		return nil
	}
	return append([]string(nil), r.renders[len(r.renders)-1]...)
}

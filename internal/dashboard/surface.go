package dashboard

import (
	"context"
	"sync"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/movie"
)

// Surface is the server-side stand-in for the dashboard document. It renders
// the movie list for the engine and observes chart frames, forwarding both
// to the hub.
type Surface struct {
	hub *Hub

	mu    sync.RWMutex
	lines []string
}

// NewSurface creates a surface that pushes to hub.
func NewSurface(hub *Hub) *Surface {
	return &Surface{hub: hub, lines: []string{}}
}

// RenderList replaces the movie list and pushes it to browsers.
func (s *Surface) RenderList(_ context.Context, records []movie.Record) error {
	lines := movie.FormatList(records)

	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()

	s.hub.Broadcast(Message{Type: MessageList, Lines: append([]string(nil), lines...)})
	return nil
}

// Lines returns the most recently rendered list.
func (s *Surface) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lines...)
}

// ObserveFrame pushes a chart frame to browsers. Use it as the
// SnapshotRenderer's FrameObserver.
func (s *Surface) ObserveFrame(f chart.Frame) {
	s.hub.Broadcast(Message{Type: MessageChart, Frame: &f})
}

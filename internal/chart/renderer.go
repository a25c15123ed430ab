package chart

import "errors"

var (
	// ErrTargetNotFound is returned when a chart is bound to a target the
	// host document does not contain.
	ErrTargetNotFound = errors.New("rendering target not found")

	// ErrTargetInUse is returned when a second chart is created on a target
	// that already has one.
	ErrTargetInUse = errors.New("rendering target already has a chart")

	// ErrUnknownKind is returned for a chart kind outside Kinds.
	ErrUnknownKind = errors.New("unknown chart kind")
)

// Renderer is the rendering capability: it binds a chart configuration to a
// named target and returns a handle for later updates.
type Renderer interface {
	Create(target string, cfg Config) (Instance, error)
}

// Instance is a live chart bound to one target.
type Instance interface {
	// SetData replaces the bound data without redrawing.
	SetData(data Data)
	// Update redraws the chart from its current configuration.
	Update() error
	// Config returns the current configuration.
	Config() Config
}

package chart

import "fmt"

// Kind identifies one of the three dashboard charts.
type Kind string

const (
	KindBar      Kind = "bar"
	KindDoughnut Kind = "doughnut"
	KindScatter  Kind = "scatter"
)

// Kinds lists every chart kind in sync order.
var Kinds = []Kind{KindBar, KindDoughnut, KindScatter}

// Target returns the id of the canvas a chart kind is bound to.
func (k Kind) Target() string {
	return string(k) + "-chart"
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBar, KindDoughnut, KindScatter:
		return true
	}
	return false
}

// ParseKind converts a flag or URL value into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Targets returns the canvas ids of every chart kind, in sync order.
func Targets() []string {
	targets := make([]string, len(Kinds))
	for i, k := range Kinds {
		targets[i] = k.Target()
	}
	return targets
}

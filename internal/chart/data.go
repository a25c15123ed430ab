package chart

import (
	"encoding/json"

	"github.com/roach88/movieme/internal/movie"
)

// Data is the Chart.js data block of one chart.
type Data struct {
	Labels   []string  `json:"labels,omitempty"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one series. Bar and doughnut series carry Values, scatter series
// carry Points. Palette, when set, replaces BackgroundColor with one color
// per value.
type Dataset struct {
	Label           string
	Values          []float64
	Points          []Point
	BackgroundColor string
	Palette         []string
}

// Point is one scatter sample.
type Point struct {
	X float64
	Y float64
}

type wireDataset struct {
	Label           string          `json:"label"`
	Data            json.RawMessage `json:"data"`
	BackgroundColor any             `json:"backgroundColor,omitempty"`
}

// MarshalJSON writes the dataset in Chart.js form. NaN values become null.
func (d Dataset) MarshalJSON() ([]byte, error) {
	w := wireDataset{Label: d.Label}
	if d.Points != nil {
		w.Data = appendPoints(nil, d.Points)
	} else {
		w.Data = appendValues(nil, d.Values)
	}
	switch {
	case d.Palette != nil:
		w.BackgroundColor = d.Palette
	case d.BackgroundColor != "":
		w.BackgroundColor = d.BackgroundColor
	}
	return json.Marshal(w)
}

// MarshalJSON writes {"x":..,"y":..}; NaN coordinates become null.
func (p Point) MarshalJSON() ([]byte, error) {
	return appendPoint(nil, p), nil
}

func appendValues(dst []byte, values []float64) []byte {
	dst = append(dst, '[')
	for i, v := range values {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = movie.AppendNumber(dst, v)
	}
	return append(dst, ']')
}

func appendPoints(dst []byte, points []Point) []byte {
	dst = append(dst, '[')
	for i, p := range points {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendPoint(dst, p)
	}
	return append(dst, ']')
}

func appendPoint(dst []byte, p Point) []byte {
	dst = append(dst, `{"x":`...)
	dst = movie.AppendNumber(dst, p.X)
	dst = append(dst, `,"y":`...)
	dst = movie.AppendNumber(dst, p.Y)
	return append(dst, '}')
}

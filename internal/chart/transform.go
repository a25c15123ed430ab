package chart

import "github.com/roach88/movieme/internal/movie"

// Dataset labels and colors as shown on the dashboard.
const (
	BarLabel      = "Domestic Gross"
	DoughnutLabel = "Number of Movies"
	ScatterLabel  = "Critic vs Audience Scores"

	BarColor     = "rgba(54, 162, 235, 0.5)"
	ScatterColor = "rgba(255, 99, 132, 0.5)"
)

// DoughnutPalette colors genre slices in label order.
var DoughnutPalette = []string{"red", "blue", "green", "yellow", "purple", "orange", "pink", "brown", "grey", "cyan"}

// Set holds the three datasets derived from one collection.
type Set struct {
	Bar      Data
	Doughnut Data
	Scatter  Data
}

// For returns the dataset of the given kind.
func (s Set) For(k Kind) Data {
	switch k {
	case KindDoughnut:
		return s.Doughnut
	case KindScatter:
		return s.Scatter
	default:
		return s.Bar
	}
}

// Transform derives the chart datasets from records. It never fails and does
// not modify its input.
func Transform(records []movie.Record) Set {
	return Set{
		Bar:      barData(records),
		Doughnut: doughnutData(records),
		Scatter:  scatterData(records),
	}
}

// barData has one bar per record, titles as labels, duplicates kept.
func barData(records []movie.Record) Data {
	labels := make([]string, len(records))
	values := make([]float64, len(records))
	for i, r := range records {
		labels[i] = r.Title
		values[i] = r.Domestic
	}
	return Data{
		Labels: labels,
		Datasets: []Dataset{{
			Label:           BarLabel,
			Values:          values,
			BackgroundColor: BarColor,
		}},
	}
}

// doughnutData has one slice per distinct genre in first-occurrence order.
func doughnutData(records []movie.Record) Data {
	var genres []string
	seen := make(map[string]bool)
	for _, r := range records {
		if !seen[r.Genre] {
			seen[r.Genre] = true
			genres = append(genres, r.Genre)
		}
	}

	counts := make([]float64, len(genres))
	for i, g := range genres {
		for _, r := range records {
			if r.Genre == g {
				counts[i]++
			}
		}
	}

	palette := make([]string, len(DoughnutPalette))
	copy(palette, DoughnutPalette)
	return Data{
		Labels: genres,
		Datasets: []Dataset{{
			Label:   DoughnutLabel,
			Values:  counts,
			Palette: palette,
		}},
	}
}

// scatterData has one point per record: critic score against audience score.
func scatterData(records []movie.Record) Data {
	points := make([]Point, len(records))
	for i, r := range records {
		points[i] = Point{X: r.CriticScore, Y: r.AudienceScore}
	}
	return Data{
		Datasets: []Dataset{{
			Label:           ScatterLabel,
			Points:          points,
			BackgroundColor: ScatterColor,
		}},
	}
}

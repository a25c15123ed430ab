package movie

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatListItem renders one line of the movie list:
//
//	Avatar - Gross: $785,221,649
func FormatListItem(r Record) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s - Gross: $%s", r.Title, formatAmount(p, r.Domestic))
}

// FormatList renders every record in collection order.
func FormatList(records []Record) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = FormatListItem(r)
	}
	return lines
}

func formatAmount(p *message.Printer, v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

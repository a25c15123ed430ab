package movie

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseInt coerces form input the way a browser's parseInt(s, 10) does:
// leading whitespace and an optional sign are skipped, then the longest run
// of decimal digits is read and anything after it is ignored. Input with no
// leading digits yields NaN.
func ParseInt(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	if neg {
		v = -v
	}
	return v
}

// Input is the raw text of one form submission.
type Input struct {
	Title         string
	CriticScore   string
	AudienceScore string
	Domestic      string
	Genre         string
}

// Record coerces the submission into a Record. Text fields are taken as-is.
func (in Input) Record() Record {
	return Record{
		Title:         in.Title,
		CriticScore:   ParseInt(in.CriticScore),
		AudienceScore: ParseInt(in.AudienceScore),
		Domestic:      ParseInt(in.Domestic),
		Genre:         in.Genre,
	}
}

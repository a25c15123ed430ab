package movie

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one movie entry. Identity is positional within a collection.
type Record struct {
	Title         string
	CriticScore   float64
	AudienceScore float64
	Domestic      float64
	Genre         string
}

// wireRecord is the persisted shape. Field order follows the form that
// produces records: title, criticScore, audienceScore, domestic, genre.
type wireRecord struct {
	Title         string     `json:"title"`
	CriticScore   jsonNumber `json:"criticScore"`
	AudienceScore jsonNumber `json:"audienceScore"`
	Domestic      jsonNumber `json:"domestic"`
	Genre         string     `json:"genre"`
}

// looseRecord accepts any JSON value in every field.
type looseRecord struct {
	Title         json.RawMessage `json:"title"`
	CriticScore   json.RawMessage `json:"criticScore"`
	AudienceScore json.RawMessage `json:"audienceScore"`
	Domestic      json.RawMessage `json:"domestic"`
	Genre         json.RawMessage `json:"genre"`
}

// MarshalJSON writes NaN and infinities as null.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		Title:         r.Title,
		CriticScore:   jsonNumber(r.CriticScore),
		AudienceScore: jsonNumber(r.AudienceScore),
		Domestic:      jsonNumber(r.Domestic),
		Genre:         r.Genre,
	})
}

// UnmarshalJSON never fails on field content, only on malformed JSON.
// Missing or unreadable numbers become NaN.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw looseRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode movie record: %w", err)
	}
	*r = Record{
		Title:         decodeText(raw.Title),
		CriticScore:   decodeNumber(raw.CriticScore),
		AudienceScore: decodeNumber(raw.AudienceScore),
		Domestic:      decodeNumber(raw.Domestic),
		Genre:         decodeText(raw.Genre),
	}
	return nil
}

// jsonNumber is a float64 that encodes non-finite values as null.
type jsonNumber float64

func (n jsonNumber) MarshalJSON() ([]byte, error) {
	return AppendNumber(nil, float64(n)), nil
}

// AppendNumber appends the JSON form of v: the shortest decimal
// representation, or null when v is NaN or infinite.
func AppendNumber(dst []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(dst, "null"...)
	}
	return strconv.AppendFloat(dst, v, 'f', -1, 64)
}

func decodeNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return math.NaN()
}

func decodeText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Numbers, booleans and the like keep their literal text.
	return string(raw)
}

package movie

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed movie-data.json
var defaultData []byte

// Defaults returns a fresh copy of the bundled default dataset.
// Panics if the embedded data is corrupt, which is a build defect.
func Defaults() []Record {
	records, err := Decode(defaultData)
	if err != nil {
		panic(fmt.Sprintf("movie: embedded default dataset: %v", err))
	}
	return records
}

// Prepend returns a new collection with r at index 0 followed by records in
// their original order. The input slice is not modified.
func Prepend(records []Record, r Record) []Record {
	out := make([]Record, 0, len(records)+1)
	out = append(out, r)
	return append(out, records...)
}

// Clone returns a copy of records that shares no backing array.
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// Encode serializes the whole collection as one JSON array.
// A nil collection encodes as an empty array.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode movies: %w", err)
	}
	// Encoder adds a trailing newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a blob written by Encode. An empty or whitespace-only blob
// and the JSON literal null decode to nil, meaning no collection; an empty
// array decodes to an empty, non-nil collection.
func Decode(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}
	return records, nil
}

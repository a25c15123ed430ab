// Package movie defines the movie record model shared by the store, the chart
// pipeline and the dashboard.
//
// Numeric fields are float64. A value that was absent or could not be read as
// a number is NaN; NaN is written as JSON null and read back as NaN. Nothing in
// this package rejects a record: malformed input is coerced, never refused.
package movie

// Package engine owns the movie collection and runs update cycles.
//
// An update cycle is one pass of the pipeline:
//
//	mutate state -> save to store -> render list -> transform -> sync charts
//
// There are four cycle kinds: start (load or seed defaults), add (prepend one
// record), reset (restore defaults) and refresh (reload without saving).
//
// Single-Writer Event Loop:
// Long-running processes submit cycles as events to a FIFO queue drained by
// Run in one goroutine, so cycles never interleave. One-shot callers (CLI
// commands) may call Start, Add, Reset and Refresh directly; those are
// serialized by a mutex and must not be mixed with a running loop from a
// different process.
//
// Every cycle is stamped with a strictly increasing sequence number from the
// Clock and a cycle token from the TokenGenerator, used for log correlation.
package engine

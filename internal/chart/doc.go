// Package chart turns a movie collection into chart datasets and keeps one
// live chart instance per chart kind in sync with them.
//
// The pipeline has three parts:
//
//   - Transform derives the bar, doughnut and scatter datasets from records.
//     It is pure and never fails; NaN values pass through untouched.
//   - Controller holds at most one Instance per Kind. Each kind is a two-state
//     machine: Absent until the first Sync creates the instance through the
//     Renderer, Present afterwards, where Sync replaces the instance's data and
//     requests a redraw.
//   - Renderer is the rendering capability. SnapshotRenderer keeps the latest
//     Chart.js configuration per target and reports every redraw as a Frame.
//
// A Sync against a target the renderer does not know is a precondition
// violation reported as ErrTargetNotFound; the kind stays Absent.
package chart

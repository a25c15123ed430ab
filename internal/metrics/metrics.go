// Package metrics exposes Prometheus collectors for the update pipeline.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional metrics dependency without guarding every call.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	ResultOK    = "ok"
	ResultError = "error"

	TransitionCreated = "created"
	TransitionUpdated = "updated"
)

// Metrics groups every collector the application reports.
type Metrics struct {
	mutations  *prometheus.CounterVec
	cycles     *prometheus.CounterVec
	chartSyncs *prometheus.CounterVec
	storeOps   *prometheus.CounterVec
	movies     prometheus.Gauge
	wsClients  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "movieme_mutations_total",
			Help: "Collection mutations by operation",
		}, []string{"op"}),
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "movieme_cycles_total",
			Help: "Update cycles by operation and result",
		}, []string{"op", "result"}),
		chartSyncs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "movieme_chart_sync_total",
			Help: "Chart syncs by chart kind and state transition",
		}, []string{"kind", "transition"}),
		storeOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "movieme_store_operations_total",
			Help: "Record store operations by driver, operation and result",
		}, []string{"driver", "op", "result"}),
		movies: f.NewGauge(prometheus.GaugeOpts{
			Name: "movieme_movies",
			Help: "Number of records in the current collection",
		}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "movieme_ws_clients",
			Help: "Connected dashboard websocket clients",
		}),
	}
}

// ObserveMutation counts one add or reset.
func (m *Metrics) ObserveMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

// ObserveCycle counts one finished update cycle.
func (m *Metrics) ObserveCycle(op string, err error) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(op, result(err)).Inc()
}

// ObserveChartSync counts one chart state transition.
func (m *Metrics) ObserveChartSync(kind, transition string) {
	if m == nil {
		return
	}
	m.chartSyncs.WithLabelValues(kind, transition).Inc()
}

// ObserveStore counts one store load or save.
func (m *Metrics) ObserveStore(driver, op string, err error) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(driver, op, result(err)).Inc()
}

// SetMovies records the collection size.
func (m *Metrics) SetMovies(n int) {
	if m == nil {
		return
	}
	m.movies.Set(float64(n))
}

// AddWSClients adjusts the connected client gauge by delta.
func (m *Metrics) AddWSClients(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

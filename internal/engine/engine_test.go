package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/metrics"
	"github.com/roach88/movieme/internal/movie"
	"github.com/roach88/movieme/internal/store"
	"github.com/roach88/movieme/internal/testutil"
)

type fixture struct {
	engine   *Engine
	store    *testutil.RecordStore
	list     *testutil.ListRenderer
	renderer *chart.SnapshotRenderer
	charts   *chart.Controller
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, s *testutil.RecordStore, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    s,
		list:     &testutil.ListRenderer{},
		renderer: chart.NewSnapshotRenderer(chart.Targets(), nil),
	}
	f.charts = chart.NewController(f.renderer, chart.WithLogger(discardLogger()))
	base := []Option{
		WithLogger(discardLogger()),
		WithClock(testutil.NewDeterministicClock()),
		WithTokenGenerator(testutil.NewSequenceGenerator("")),
	}
	f.engine = New(s, f.list, f.charts, append(base, opts...)...)
	return f
}

func (f *fixture) frame(t *testing.T, k chart.Kind) chart.Frame {
	t.Helper()
	fr, ok := f.renderer.Frame(k.Target())
	require.True(t, ok, "no frame for %s", k)
	return fr
}

func rec(title, genre string, critic, audience, domestic float64) movie.Record {
	return movie.Record{Title: title, Genre: genre, CriticScore: critic, AudienceScore: audience, Domestic: domestic}
}

func TestEngine_StartSeedsDefaults(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())

	c, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OpStart, c.Op)
	assert.Equal(t, int64(1), c.Seq)
	assert.Equal(t, "cycle-1", c.Token)
	assert.Equal(t, movie.Defaults(), c.Movies)

	saved, ok := f.store.Saved()
	require.True(t, ok, "absent store must be seeded with defaults")
	assert.Equal(t, movie.Defaults(), saved)
	assert.Equal(t, movie.Defaults(), f.engine.Snapshot().Movies)

	assert.Equal(t, 1, f.list.Renders())
	assert.Len(t, f.list.Lines(), 10)
	assert.Equal(t, "Star Wars: The Force Awakens - Gross: $936,662,225", f.list.Lines()[0])

	assert.Equal(t, 3, f.charts.Len())
	for _, k := range chart.Kinds {
		assert.Equal(t, chart.StatePresent, f.charts.State(k), k)
	}
}

func TestEngine_StartLoadsWithoutSaving(t *testing.T) {
	stored := []movie.Record{rec("A", "Drama", 80, 90, 100)}
	f := newFixture(t, testutil.NewRecordStore(stored))

	c, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, stored, c.Movies)
	assert.Zero(t, f.store.Saves())
	assert.Equal(t, []string{"A - Gross: $100"}, f.list.Lines())
}

func TestEngine_StartEmptyCollection(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore([]movie.Record{}))

	c, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	assert.Empty(t, c.Movies, "a saved empty collection is not replaced by defaults")
	assert.Empty(t, f.list.Lines())

	bar := f.frame(t, chart.KindBar).Config.Data
	assert.Empty(t, bar.Labels)
	assert.Empty(t, bar.Datasets[0].Values)
	assert.Equal(t, 3, f.charts.Len(), "charts are created even for an empty collection")
}

func TestEngine_AddPrepends(t *testing.T) {
	ctx := context.Background()
	initial := []movie.Record{rec("A", "Drama", 80, 90, 100)}
	f := newFixture(t, testutil.NewRecordStore(initial))
	_, err := f.engine.Start(ctx)
	require.NoError(t, err)

	m := rec("M", "Comedy", 50, 60, 70)
	c, err := f.engine.Add(ctx, m)
	require.NoError(t, err)

	want := []movie.Record{m, initial[0]}
	assert.Equal(t, OpAdd, c.Op)
	assert.Equal(t, int64(2), c.Seq)
	assert.Equal(t, "cycle-2", c.Token)
	assert.Equal(t, want, c.Movies)

	saved, _ := f.store.Saved()
	assert.Equal(t, want, saved, "collection is persisted after add")
	assert.Equal(t, []string{"M - Gross: $70", "A - Gross: $100"}, f.list.Lines())
}

// Two records B then A, as in the dashboard walkthrough.
func TestEngine_BarDoughnutScatterScenario(t *testing.T) {
	ctx := context.Background()
	a := rec("A", "Drama", 80, 90, 100)
	b := rec("B", "Drama", 70, 60, 200)
	f := newFixture(t, testutil.NewRecordStore([]movie.Record{a}))
	_, err := f.engine.Start(ctx)
	require.NoError(t, err)
	_, err = f.engine.Add(ctx, b)
	require.NoError(t, err)

	bar := f.frame(t, chart.KindBar)
	assert.Equal(t, []string{"B", "A"}, bar.Config.Data.Labels)
	assert.Equal(t, []float64{200, 100}, bar.Config.Data.Datasets[0].Values)
	assert.Equal(t, int64(2), bar.Revision, "second sync updates the existing instance")

	doughnut := f.frame(t, chart.KindDoughnut).Config.Data
	assert.Equal(t, []string{"Drama"}, doughnut.Labels)
	assert.Equal(t, []float64{2}, doughnut.Datasets[0].Values)

	scatter := f.frame(t, chart.KindScatter).Config.Data
	assert.Equal(t, []chart.Point{{X: 70, Y: 60}, {X: 80, Y: 90}}, scatter.Datasets[0].Points)

	assert.Equal(t, 3, f.charts.Len())
}

func TestEngine_ResetRestoresDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.NewRecordStore())
	_, err := f.engine.Start(ctx)
	require.NoError(t, err)
	_, err = f.engine.Add(ctx, rec("X", "Horror", 1, 2, 3))
	require.NoError(t, err)

	c, err := f.engine.Reset(ctx)
	require.NoError(t, err)

	assert.Equal(t, movie.Defaults(), c.Movies)
	saved, _ := f.store.Saved()
	assert.Equal(t, movie.Defaults(), saved)
	assert.Equal(t, 3, f.store.Saves())

	doughnut := f.frame(t, chart.KindDoughnut).Config.Data
	assert.Equal(t, []string{"Sci-Fi", "Action", "Drama", "Adventure", "Animation", "Comedy"}, doughnut.Labels)
	assert.Equal(t, []float64{2, 3, 1, 1, 2, 1}, doughnut.Datasets[0].Values)
}

func TestEngine_ResetIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.NewRecordStore())

	first, err := f.engine.Reset(ctx)
	require.NoError(t, err)
	second, err := f.engine.Reset(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Movies, second.Movies)
	assert.Equal(t, 3, f.charts.Len())
}

func TestEngine_AddMalformedInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.NewRecordStore([]movie.Record{}))
	_, err := f.engine.Start(ctx)
	require.NoError(t, err)

	m := movie.Input{Title: "Odd", CriticScore: "abc", AudienceScore: "75", Domestic: "", Genre: "Drama"}.Record()
	c, err := f.engine.Add(ctx, m)
	require.NoError(t, err, "malformed numbers are coerced, never rejected")

	if diff := cmp.Diff([]movie.Record{m}, c.Movies, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("movies mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Odd - Gross: $NaN"}, f.list.Lines())

	scatter := f.frame(t, chart.KindScatter).Config.Data
	require.Len(t, scatter.Datasets[0].Points, 1)
	assert.True(t, isNaN(scatter.Datasets[0].Points[0].X))
	assert.Equal(t, float64(75), scatter.Datasets[0].Points[0].Y)
}

func isNaN(f float64) bool { return f != f }

func TestEngine_RefreshReloadsWithoutSaving(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewRecordStore([]movie.Record{rec("A", "Drama", 1, 2, 3)})
	f := newFixture(t, s)
	_, err := f.engine.Start(ctx)
	require.NoError(t, err)

	// Another process rewrites the collection.
	external := []movie.Record{rec("Z", "Western", 4, 5, 6), rec("A", "Drama", 1, 2, 3)}
	require.NoError(t, s.Save(ctx, external))
	saves := s.Saves()

	c, err := f.engine.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, OpRefresh, c.Op)
	assert.Equal(t, external, f.engine.Snapshot().Movies)
	assert.Equal(t, saves, s.Saves(), "refresh must not write")
	assert.Equal(t, []string{"Z", "A"}, f.frame(t, chart.KindBar).Config.Data.Labels)
}

func TestEngine_RefreshEmptyStoreUsesDefaults(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())

	c, err := f.engine.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, movie.Defaults(), c.Movies)
	assert.Zero(t, f.store.Saves())
}

// nullStoreEngine builds an engine over a store whose blob is the JSON
// literal null, as left behind by another writer.
func nullStoreEngine(t *testing.T) (*Engine, *store.Store, *testutil.ListRenderer) {
	t.Helper()
	b := store.NewMemoryBackend()
	require.NoError(t, b.Put(context.Background(), store.DefaultKey, []byte("null")))
	st := store.New(b, store.WithLogger(discardLogger()))

	list := &testutil.ListRenderer{}
	charts := chart.NewController(chart.NewSnapshotRenderer(chart.Targets(), nil), chart.WithLogger(discardLogger()))
	return New(st, list, charts, WithLogger(discardLogger())), st, list
}

func TestEngine_StartNullBlobSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	e, st, list := nullStoreEngine(t)

	c, err := e.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, movie.Defaults(), c.Movies)
	assert.Len(t, list.Lines(), len(movie.Defaults()))

	saved, found, err := st.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, movie.Defaults(), saved)
}

func TestEngine_RefreshNullBlobUsesDefaults(t *testing.T) {
	e, _, list := nullStoreEngine(t)

	c, err := e.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, movie.Defaults(), c.Movies)
	assert.Equal(t, movie.FormatList(movie.Defaults()), list.Lines())
}

func TestEngine_SaveFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewRecordStore([]movie.Record{})
	f := newFixture(t, s)
	_, err := f.engine.Start(ctx)
	require.NoError(t, err)

	s.SaveErr = errors.New("quota exceeded")
	m := rec("M", "Drama", 1, 2, 3)
	_, err = f.engine.Add(ctx, m)
	require.Error(t, err)

	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, OpAdd, ce.Op)
	assert.Equal(t, int64(2), ce.Seq)
	assert.ErrorIs(t, err, s.SaveErr)
	assert.True(t, IsCycleError(err))
	assert.Contains(t, err.Error(), "add cycle 2: quota exceeded")

	assert.Equal(t, []movie.Record{m}, f.engine.Snapshot().Movies, "state is not rolled back")
	assert.Equal(t, 1, f.list.Renders(), "no redraw after a failed save")
}

func TestEngine_StartLoadFailure(t *testing.T) {
	s := testutil.NewRecordStore()
	s.LoadErr = errors.New("unreachable")
	f := newFixture(t, s)

	_, err := f.engine.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, s.LoadErr)
	assert.Zero(t, f.charts.Len())
	assert.Empty(t, f.engine.Snapshot().Movies)
}

func TestEngine_MissingChartTarget(t *testing.T) {
	s := testutil.NewRecordStore()
	list := &testutil.ListRenderer{}
	renderer := chart.NewSnapshotRenderer([]string{"bar-chart", "doughnut-chart"}, nil)
	charts := chart.NewController(renderer, chart.WithLogger(discardLogger()))
	e := New(s, list, charts, WithLogger(discardLogger()))

	_, err := e.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, chart.ErrTargetNotFound)
	assert.Equal(t, chart.StateAbsent, charts.State(chart.KindScatter))
}

func TestEngine_ListRenderFailure(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())
	f.list.Err = errors.New("gone")

	_, err := f.engine.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render movies-list: gone")
	assert.Zero(t, f.charts.Len())
}

func TestEngine_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	s := testutil.NewRecordStore()
	f := newFixture(t, s, WithMetrics(metrics.New(reg)))

	_, err := f.engine.Start(ctx)
	require.NoError(t, err)
	_, err = f.engine.Add(ctx, rec("M", "Drama", 1, 2, 3))
	require.NoError(t, err)
	s.SaveErr = errors.New("nope")
	_, err = f.engine.Reset(ctx)
	require.Error(t, err)

	expected := `
# HELP movieme_cycles_total Update cycles by operation and result
# TYPE movieme_cycles_total counter
movieme_cycles_total{op="add",result="ok"} 1
movieme_cycles_total{op="reset",result="error"} 1
movieme_cycles_total{op="start",result="ok"} 1
# HELP movieme_movies Number of records in the current collection
# TYPE movieme_movies gauge
movieme_movies 10
# HELP movieme_mutations_total Collection mutations by operation
# TYPE movieme_mutations_total counter
movieme_mutations_total{op="add"} 1
movieme_mutations_total{op="reset"} 1
`
	err = promtest.GatherAndCompare(reg, strings.NewReader(expected),
		"movieme_cycles_total", "movieme_movies", "movieme_mutations_total")
	assert.NoError(t, err)
}

func startLoop(t *testing.T, e *Engine) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	return cancel, done
}

func TestEngine_RunDo(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())
	cancel, done := startLoop(t, f.engine)

	ctx := context.Background()
	c, err := f.engine.Do(ctx, Event{Op: OpStart})
	require.NoError(t, err)
	assert.Len(t, c.Movies, 10)

	c, err = f.engine.Do(ctx, AddEvent(rec("M", "Drama", 1, 2, 3)))
	require.NoError(t, err)
	assert.Len(t, c.Movies, 11)
	assert.Equal(t, "M", c.Movies[0].Title)

	c, err = f.engine.Do(ctx, Event{Op: OpReset})
	require.NoError(t, err)
	assert.Equal(t, movie.Defaults(), c.Movies)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestEngine_RunSerializesConcurrentAdds(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore([]movie.Record{}))
	cancel, done := startLoop(t, f.engine)
	defer func() {
		cancel()
		<-done
	}()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Do(context.Background(), AddEvent(rec("M", "Drama", 1, 2, 3)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.engine.Snapshot().Movies, n)
	assert.Equal(t, n, f.store.Saves())
	assert.Equal(t, int64(n), f.frame(t, chart.KindBar).Revision)
}

func TestEngine_RunLogsAndContinues(t *testing.T) {
	s := testutil.NewRecordStore()
	s.LoadErr = errors.New("flaky")
	f := newFixture(t, s)
	cancel, done := startLoop(t, f.engine)
	defer func() {
		cancel()
		<-done
	}()

	_, err := f.engine.Do(context.Background(), Event{Op: OpStart})
	require.Error(t, err)

	c, err := f.engine.Do(context.Background(), Event{Op: OpReset})
	require.NoError(t, err, "the loop keeps running after a failed cycle")
	assert.Len(t, c.Movies, 10)
}

func TestEngine_EnqueueFireAndForget(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())
	cancel, done := startLoop(t, f.engine)
	defer func() {
		cancel()
		<-done
	}()

	require.True(t, f.engine.Enqueue(Event{Op: OpRefresh}))
	assert.Eventually(t, func() bool { return f.list.Renders() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEngine_UnknownOp(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())
	cancel, done := startLoop(t, f.engine)
	defer func() {
		cancel()
		<-done
	}()

	_, err := f.engine.Do(context.Background(), Event{Op: "delete"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown event op "delete"`)
}

func TestEngine_StopEndsRun(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())
	_, done := startLoop(t, f.engine)

	f.engine.Stop()
	require.NoError(t, <-done)

	_, err := f.engine.Do(context.Background(), Event{Op: OpReset})
	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, f.engine.Enqueue(Event{Op: OpReset}))
}

func TestEngine_StopAnswersQueuedEvents(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())

	// No loop running: the event waits in the queue until Stop drains it.
	result := make(chan error, 1)
	go func() {
		_, err := f.engine.Do(context.Background(), Event{Op: OpReset})
		result <- err
	}()
	require.Eventually(t, func() bool { return f.engine.QueueLen() == 1 }, time.Second, time.Millisecond)

	f.engine.Stop()
	assert.ErrorIs(t, <-result, ErrStopped)
}

func TestEngine_DoHonoursContext(t *testing.T) {
	f := newFixture(t, testutil.NewRecordStore())
	defer f.engine.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.engine.Do(ctx, Event{Op: OpReset})
	assert.ErrorIs(t, err, context.Canceled)
}

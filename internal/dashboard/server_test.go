package dashboard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/engine"
	"github.com/roach88/movieme/internal/metrics"
	"github.com/roach88/movieme/internal/movie"
	"github.com/roach88/movieme/internal/testutil"
)

type stack struct {
	engine   *engine.Engine
	hub      *Hub
	surface  *Surface
	renderer *chart.SnapshotRenderer
	store    *testutil.RecordStore
	server   *Server
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStack(t *testing.T, start bool) *stack {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := discardLogger()

	s := &stack{store: testutil.NewRecordStore()}
	s.hub = NewHub(logger, m)
	s.surface = NewSurface(s.hub)
	s.renderer = chart.NewSnapshotRenderer(chart.Targets(), s.surface.ObserveFrame)
	charts := chart.NewController(s.renderer, chart.WithLogger(logger), chart.WithMetrics(m))
	s.engine = engine.New(s.store, s.surface, charts, engine.WithLogger(logger), engine.WithMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.engine.Run(ctx)
	}()
	t.Cleanup(func() {
		s.hub.Close()
		cancel()
		<-done
	})

	if start {
		_, err := s.engine.Do(ctx, engine.Event{Op: engine.OpStart})
		require.NoError(t, err)
	}

	s.server = NewServer(Config{
		Engine:   s.engine,
		Renderer: s.renderer,
		Hub:      s.hub,
		Surface:  s.surface,
		Gatherer: reg,
		Logger:   logger,
	})
	return s
}

func (s *stack) request(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeMovies(t *testing.T, w *httptest.ResponseRecorder) []movie.Record {
	t.Helper()
	records, err := movie.Decode(w.Body.Bytes())
	require.NoError(t, err, w.Body.String())
	return records
}

func TestServer_Index(t *testing.T) {
	s := newStack(t, false)

	w := s.request(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	for _, id := range []string{"movie-form", "reset-movies", "movies-list", "bar-chart", "doughnut-chart", "scatter-chart"} {
		assert.Contains(t, w.Body.String(), `id="`+id+`"`)
	}
}

func TestServer_IndexForgetsRevisionsOnReconnect(t *testing.T) {
	s := newStack(t, false)

	w := s.request(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	page := w.Body.String()
	open := strings.Index(page, "ws.onopen")
	require.NotEqual(t, -1, open, "page must handle websocket open")
	assert.Contains(t, page[open:], "delete revisions[target]")
}

func TestServer_Health(t *testing.T) {
	s := newStack(t, false)

	w := s.request(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_ListMovies(t *testing.T) {
	s := newStack(t, true)

	w := s.request(t, http.MethodGet, "/api/movies", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, movie.Defaults(), decodeMovies(t, w))
}

func TestServer_ListMoviesBeforeStart(t *testing.T) {
	s := newStack(t, false)

	w := s.request(t, http.MethodGet, "/api/movies", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestServer_AddMovieForm(t *testing.T) {
	s := newStack(t, true)

	form := url.Values{
		"title":         {"Oppenheimer"},
		"criticScore":   {"93"},
		"audienceScore": {"91"},
		"domestic":      {"330078895"},
		"genre":         {"Drama"},
	}
	w := s.request(t, http.MethodPost, "/api/movies", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	records := decodeMovies(t, w)
	require.Len(t, records, 11)
	assert.Equal(t, movie.Record{Title: "Oppenheimer", CriticScore: 93, AudienceScore: 91, Domestic: 330078895, Genre: "Drama"}, records[0])
	assert.Equal(t, movie.Defaults(), records[1:])

	saved, _ := s.store.Saved()
	assert.Equal(t, records, saved)
	assert.Equal(t, "Oppenheimer - Gross: $330,078,895", s.surface.Lines()[0])
}

func TestServer_AddMovieMalformedNumbers(t *testing.T) {
	s := newStack(t, true)

	form := url.Values{"title": {"Odd"}, "criticScore": {"abc"}, "audienceScore": {"7x"}, "genre": {"Drama"}}
	w := s.request(t, http.MethodPost, "/api/movies", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusCreated, w.Code)

	assert.True(t, strings.HasPrefix(w.Body.String(),
		`[{"title":"Odd","criticScore":null,"audienceScore":7,"domestic":null,"genre":"Drama"}`), w.Body.String())
}

func TestServer_AddMovieJSON(t *testing.T) {
	s := newStack(t, true)

	body := `{"title":"Dune","criticScore":83,"audienceScore":"90","domestic":108327830,"genre":"Sci-Fi"}`
	w := s.request(t, http.MethodPost, "/api/movies", "application/json", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	records := decodeMovies(t, w)
	assert.Equal(t, movie.Record{Title: "Dune", CriticScore: 83, AudienceScore: 90, Domestic: 108327830, Genre: "Sci-Fi"}, records[0])
}

func TestServer_AddMovieBadJSON(t *testing.T) {
	s := newStack(t, true)

	w := s.request(t, http.MethodPost, "/api/movies", "application/json", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")
	assert.Equal(t, 1, s.store.Saves(), "only the startup seed was saved")
}

func TestServer_Reset(t *testing.T) {
	s := newStack(t, true)
	s.request(t, http.MethodPost, "/api/movies", "application/x-www-form-urlencoded", "title=X")

	w := s.request(t, http.MethodPost, "/api/reset", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, movie.Defaults(), decodeMovies(t, w))

	saved, _ := s.store.Saved()
	assert.Equal(t, movie.Defaults(), saved)
}

func TestServer_CycleFailure(t *testing.T) {
	s := newStack(t, true)
	s.store.SaveErr = assert.AnError

	w := s.request(t, http.MethodPost, "/api/reset", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "reset cycle")
}

func TestServer_EngineStopped(t *testing.T) {
	s := newStack(t, true)
	s.engine.Stop()

	w := s.request(t, http.MethodPost, "/api/reset", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_Charts(t *testing.T) {
	s := newStack(t, true)

	w := s.request(t, http.MethodGet, "/api/charts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, target := range chart.Targets() {
		assert.Contains(t, body, `"target":"`+target+`"`)
	}

	w = s.request(t, http.MethodGet, "/api/charts?kind=doughnut", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"labels":["Sci-Fi","Action","Drama","Adventure","Animation","Comedy"]`)
	assert.Contains(t, w.Body.String(), `"data":[2,3,1,1,2,1]`)

	w = s.request(t, http.MethodGet, "/api/charts?kind=pie", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_ChartsBeforeStart(t *testing.T) {
	s := newStack(t, false)

	w := s.request(t, http.MethodGet, "/api/charts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = s.request(t, http.MethodGet, "/api/charts?kind=bar", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	s := newStack(t, true)

	w := s.request(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "movieme_movies 10")
	assert.Contains(t, w.Body.String(), `movieme_chart_sync_total{kind="bar",transition="created"} 1`)
}

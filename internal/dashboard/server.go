package dashboard

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/movieme/internal/chart"
	"github.com/roach88/movieme/internal/engine"
	"github.com/roach88/movieme/internal/movie"
)

//go:embed web/index.html
var indexHTML []byte

// Engine is the part of *engine.Engine the server drives.
type Engine interface {
	Do(ctx context.Context, ev engine.Event) (engine.Cycle, error)
	Snapshot() engine.State
}

// Config wires a Server.
type Config struct {
	Engine   Engine
	Renderer *chart.SnapshotRenderer
	Hub      *Hub
	Surface  *Surface
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server routes dashboard HTTP traffic.
type Server struct {
	engine   Engine
	renderer *chart.SnapshotRenderer
	hub      *Hub
	surface  *Surface
	logger   *slog.Logger
	router   *gin.Engine
}

// NewServer builds the router.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
		hub:      cfg.Hub,
		surface:  cfg.Surface,
		logger:   logger,
		router:   gin.New(),
	}

	s.router.Use(gin.Recovery(), s.logRequests())

	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.GET("/movies", s.handleListMovies)
		api.POST("/movies", s.handleAddMovie)
		api.POST("/reset", s.handleReset)
		api.GET("/charts", s.handleCharts)
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListMovies(c *gin.Context) {
	s.writeMovies(c, http.StatusOK, s.engine.Snapshot().Movies)
}

func (s *Server) handleAddMovie(c *gin.Context) {
	in, err := bindInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cycle, err := s.engine.Do(c.Request.Context(), engine.AddEvent(in.Record()))
	if err != nil {
		s.cycleFailed(c, err)
		return
	}
	s.writeMovies(c, http.StatusCreated, cycle.Movies)
}

func (s *Server) handleReset(c *gin.Context) {
	cycle, err := s.engine.Do(c.Request.Context(), engine.Event{Op: engine.OpReset})
	if err != nil {
		s.cycleFailed(c, err)
		return
	}
	s.writeMovies(c, http.StatusOK, cycle.Movies)
}

func (s *Server) handleCharts(c *gin.Context) {
	if raw := c.Query("kind"); raw != "" {
		kind, err := chart.ParseKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		frame, ok := s.renderer.Frame(kind.Target())
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s chart not rendered yet", kind)})
			return
		}
		c.JSON(http.StatusOK, frame)
		return
	}
	frames := s.renderer.Snapshot()
	if frames == nil {
		frames = []chart.Frame{}
	}
	c.JSON(http.StatusOK, frames)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	s.hub.Serve(c.Writer, c.Request, s.initialMessages)
}

// initialMessages is the state a newly connected browser starts from.
func (s *Server) initialMessages() []Message {
	msgs := []Message{{Type: MessageList, Lines: s.surface.Lines()}}
	for _, f := range s.renderer.Snapshot() {
		msgs = append(msgs, Message{Type: MessageChart, Frame: &f})
	}
	return msgs
}

func (s *Server) writeMovies(c *gin.Context, status int, records []movie.Record) {
	blob, err := movie.Encode(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "application/json; charset=utf-8", blob)
}

func (s *Server) cycleFailed(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, engine.ErrStopped) {
		status = http.StatusServiceUnavailable
	}
	s.logger.Error("cycle request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindInput reads the five movie fields from a form post or a JSON object.
// JSON values may be strings or numbers; both go through the same coercion
// as form text.
func bindInput(c *gin.Context) (movie.Input, error) {
	if !strings.HasPrefix(c.ContentType(), "application/json") {
		return movie.Input{
			Title:         c.PostForm("title"),
			CriticScore:   c.PostForm("criticScore"),
			AudienceScore: c.PostForm("audienceScore"),
			Domestic:      c.PostForm("domestic"),
			Genre:         c.PostForm("genre"),
		}, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return movie.Input{}, fmt.Errorf("read body: %w", err)
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return movie.Input{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return movie.Input{
		Title:         text(fields["title"]),
		CriticScore:   text(fields["criticScore"]),
		AudienceScore: text(fields["audienceScore"]),
		Domestic:      text(fields["domestic"]),
		Genre:         text(fields["genre"]),
	}, nil
}

func text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

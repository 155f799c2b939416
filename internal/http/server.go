// Package http serves the movie collection web interface, health checks and
// Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"movienight/internal/core"
	"movienight/internal/store"
)

// Server exposes the collection API, the HTML grid page and observability
// endpoints.
type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

// Metrics holds the Prometheus instruments for message processing and the
// collection gauge.
type Metrics struct {
	MessagesTotal     *prometheus.CounterVec
	AddsTotal         *prometheus.CounterVec
	DuplicatesTotal   prometheus.Counter
	LookupErrorsTotal *prometheus.CounterVec
	ProcessingTime    *prometheus.HistogramVec
	CollectionSize    prometheus.Gauge
}

// NewServer creates the HTTP server and registers its metrics with the
// default Prometheus registry.
func NewServer(config *core.ServerConfig, movies core.MovieStore, dedup core.DedupCache, logger *zap.Logger) *Server {
	metrics := newMetrics()

	prometheus.MustRegister(
		metrics.MessagesTotal,
		metrics.AddsTotal,
		metrics.DuplicatesTotal,
		metrics.LookupErrorsTotal,
		metrics.ProcessingTime,
		metrics.CollectionSize,
	)

	mux := setupRoutes(movies, dedup, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return &Server{
		config:  config,
		logger:  logger,
		server:  server,
		metrics: metrics,
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movienight_messages_total",
				Help: "Total number of chat messages processed",
			},
			[]string{"type", "status"},
		),
		AddsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movienight_movies_added_total",
				Help: "Total number of movies added to the collection",
			},
			[]string{"source"},
		),
		DuplicatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "movienight_duplicates_total",
				Help: "Total number of duplicate movie links skipped",
			},
		),
		LookupErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movienight_lookup_errors_total",
				Help: "Total number of links that failed metadata resolution",
			},
			[]string{"source"},
		),
		ProcessingTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "movienight_processing_duration_seconds",
				Help:    "Time spent processing messages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		CollectionSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "movienight_collection_size",
				Help: "Current number of movies in the collection",
			},
		),
	}
}

// setupRoutes builds the request mux. Kept separate from metric
// registration so tests can exercise handlers without touching the global
// Prometheus registry.
func setupRoutes(movies core.MovieStore, dedup core.DedupCache, logger *zap.Logger) *http.ServeMux {
	h := &handlers{movies: movies, dedup: dedup, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"movienight"}`))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"movienight"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/movies", h.listMovies)
	mux.HandleFunc("GET /api/movies/{tmdbID}", h.getMovie)
	mux.HandleFunc("DELETE /api/movies/{tmdbID}", h.deleteMovie)
	mux.HandleFunc("POST /api/movies/{id}/toggle-seen", h.toggleSeen)
	mux.HandleFunc("GET /api/genres", h.listGenres)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("GET /api/search", h.search)

	mux.HandleFunc("GET /{$}", h.index)

	return mux
}

// Start runs the server until ctx is done, then shuts it down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// RecordMessage counts a processed chat message.
func (s *Server) RecordMessage(msgType, status string) {
	s.metrics.MessagesTotal.WithLabelValues(msgType, status).Inc()
}

// RecordAdd counts a movie added to the collection.
func (s *Server) RecordAdd(source string) {
	s.metrics.AddsTotal.WithLabelValues(source).Inc()
}

// RecordDuplicate counts a duplicate link skipped.
func (s *Server) RecordDuplicate() {
	s.metrics.DuplicatesTotal.Inc()
}

// RecordLookupError counts a link that failed resolution.
func (s *Server) RecordLookupError(source string) {
	s.metrics.LookupErrorsTotal.WithLabelValues(source).Inc()
}

// RecordProcessingTime observes message processing duration.
func (s *Server) RecordProcessingTime(msgType string, duration time.Duration) {
	s.metrics.ProcessingTime.WithLabelValues(msgType).Observe(duration.Seconds())
}

// SetCollectionSize updates the collection size gauge.
func (s *Server) SetCollectionSize(size int) {
	s.metrics.CollectionSize.Set(float64(size))
}

type handlers struct {
	movies core.MovieStore
	dedup  core.DedupCache
	logger *zap.Logger
}

func (h *handlers) listMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.All(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list movies", err)
		return
	}
	if movies == nil {
		movies = []core.Movie{}
	}
	h.writeJSON(w, http.StatusOK, movies)
}

func (h *handlers) getMovie(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := strconv.ParseInt(r.PathValue("tmdbID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid TMDB id")
		return
	}

	movie, err := h.movies.GetByTMDBID(r.Context(), tmdbID)
	if errors.Is(err, store.ErrMovieNotFound) {
		h.writeError(w, http.StatusNotFound, "movie not found")
		return
	}
	if err != nil {
		h.serverError(w, "Failed to load movie", err)
		return
	}

	h.writeJSON(w, http.StatusOK, movie)
}

func (h *handlers) deleteMovie(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := strconv.ParseInt(r.PathValue("tmdbID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid TMDB id")
		return
	}

	err = h.movies.Delete(r.Context(), tmdbID)
	if errors.Is(err, store.ErrMovieNotFound) {
		h.writeError(w, http.StatusNotFound, "movie not found")
		return
	}
	if err != nil {
		h.serverError(w, "Failed to delete movie", err)
		return
	}

	// Keep the bot's dedup cache in sync so the movie can be re-added.
	h.dedup.Remove(tmdbID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) toggleSeen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid movie id")
		return
	}

	movie, err := h.movies.ToggleSeen(r.Context(), id)
	if errors.Is(err, store.ErrMovieNotFound) {
		h.writeError(w, http.StatusNotFound, "movie not found")
		return
	}
	if err != nil {
		h.serverError(w, "Failed to toggle seen", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"seen":    movie.Seen,
	})
}

func (h *handlers) listGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.movies.Genres(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list genres", err)
		return
	}
	if genres == nil {
		genres = []string{}
	}
	h.writeJSON(w, http.StatusOK, genres)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.movies.Count(r.Context())
	if err != nil {
		h.serverError(w, "Failed to count movies", err)
		return
	}

	genres, err := h.movies.Genres(r.Context())
	if err != nil {
		h.serverError(w, "Failed to list genres", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{
		"total_movies": count,
		"total_genres": len(genres),
	})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	movies, err := h.movies.Search(r.Context(), query)
	if err != nil {
		h.serverError(w, "Failed to search movies", err)
		return
	}
	if movies == nil {
		movies = []core.Movie{}
	}
	h.writeJSON(w, http.StatusOK, movies)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.All(r.Context())
	if err != nil {
		h.serverError(w, "Failed to load movies", err)
		return
	}

	genres, err := h.movies.Genres(r.Context())
	if err != nil {
		h.serverError(w, "Failed to load genres", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexData{Movies: movies, Genres: genres}); err != nil {
		h.logger.Error("Failed to render index page", zap.Error(err))
	}
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *handlers) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

type indexData struct {
	Movies []core.Movie
	Genres []string
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Movie Night</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; background: #111; color: #eee; }
        h1 { color: #e50914; }
        .genres { margin-bottom: 20px; color: #999; }
        .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(180px, 1fr)); gap: 16px; }
        .card { background: #1c1c1c; border-radius: 8px; padding: 12px; }
        .card img { width: 100%; border-radius: 4px; }
        .card .title { font-weight: bold; margin-top: 8px; }
        .card .meta { color: #999; font-size: 0.85em; }
        .seen { opacity: 0.5; }
    </style>
</head>
<body>
    <h1>🍿 Movie Night</h1>
    <div class="genres">{{len .Movies}} movies · Genres: {{range $i, $g := .Genres}}{{if $i}}, {{end}}{{$g}}{{end}}</div>
    <div class="grid">
    {{range .Movies}}
        <div class="card{{if .Seen}} seen{{end}}">
            {{if .PosterURL}}<img src="{{.PosterURL}}" alt="{{.Title}}">{{end}}
            <div class="title">{{.Title}}{{if .Year}} ({{.Year}}){{end}}</div>
            <div class="meta">{{range $i, $g := .Genres}}{{if $i}}, {{end}}{{$g}}{{end}}</div>
            {{if .AddedBy}}<div class="meta">added by {{.AddedBy}}</div>{{end}}
        </div>
    {{end}}
    </div>
</body>
</html>
`))

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/beauty-engine/backend/internal/catalog"
	"github.com/beauty-engine/backend/internal/engine"
	"github.com/beauty-engine/backend/internal/export"
	"github.com/beauty-engine/backend/internal/images"
	"github.com/beauty-engine/backend/internal/metrics"
	"github.com/beauty-engine/backend/internal/recommend"
	"github.com/beauty-engine/backend/internal/storage"
)

const maxBodyBytes = 1 << 20

// MaxSearchLimit caps the limit parameter of /api/v1/search.
const MaxSearchLimit = 100

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router chi.Router

	httpServer *http.Server
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	s := &Server{
		Engine: eng,
		Logger: logger,
		Router: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	cfg := s.Engine.Config.Server

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	s.Router.Use(s.metricsMiddleware)

	s.Router.Get("/metrics", promhttp.Handler().ServeHTTP)

	s.Router.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, cfg.RateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		r.Post("/recommend", s.handleRecommend)
		r.Get("/exports/{id}", s.handleExport)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/catalog/images", s.handleImageAudit)
		r.Post("/catalog/reload", s.handleReload)
		r.Get("/search", s.handleSearch)
		r.Get("/status", s.handleStatus)
	})
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	cfg := s.Engine.Config.Server
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	s.Logger.Infof("Starting API Server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Responses
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type RecommendResponse struct {
	ExportID string        `json:"export_id"`
	Count    int           `json:"count"`
	Message  string        `json:"message,omitempty"`
	Results  []export.Item `json:"results"`
}

type SearchResponse struct {
	Query   string             `json:"query"`
	Results []engine.SearchHit `json:"results"`
}

type StatusResponse struct {
	Loaded       bool      `json:"loaded"`
	Source       string    `json:"source,omitempty"`
	Version      int64     `json:"version"`
	Products     int       `json:"products"`
	Vocabulary   int       `json:"vocabulary"`
	LoadedAt     time.Time `json:"loaded_at,omitempty"`
	Queries      int64     `json:"queries"`
	EmptyResults int64     `json:"empty_results"`
	Reloads      int64     `json:"reloads"`
	LastError    string    `json:"last_error,omitempty"`
	Uptime       string    `json:"uptime"`
	ImageBreaker string    `json:"image_breaker,omitempty"`
}

type ReloadResponse struct {
	Source   string `json:"source"`
	Version  int64  `json:"version"`
	Products int    `json:"products"`
}

// Handlers

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q := s.Engine.DefaultQuery("")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	report, err := s.Engine.Recommend(r.Context(), q)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	resp := RecommendResponse{
		ExportID: report.ID,
		Count:    len(report.Items),
		Results:  report.Items,
	}
	if len(report.Items) == 0 {
		resp.Message = "No products match the selected filters"
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.Engine.Export(id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="recommendations-`+report.ID+`.json"`)
		if err := report.WriteJSON(w); err != nil {
			s.Logger.WithError(err).Error("Failed to write JSON export")
		}
		return
	}

	breakdown, _ := strconv.ParseBool(r.URL.Query().Get("breakdown"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="recommendations-`+report.ID+`.csv"`)
	if err := report.WriteCSV(w, breakdown); err != nil {
		s.Logger.WithError(err).Error("Failed to write CSV export")
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Engine.Summary()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}

func (s *Server) handleImageAudit(w http.ResponseWriter, r *http.Request) {
	issues, err := s.Engine.ImageAudit()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if issues == nil {
		issues = []images.Issue{}
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"count":  len(issues),
		"issues": issues,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Engine.Reload()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, ReloadResponse{
		Source:   snap.Source,
		Version:  snap.Version,
		Products: snap.Catalog.Len(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, MaxSearchLimit)
	}

	hits, err := s.Engine.Search(query, limit)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, SearchResponse{Query: query, Results: hits})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.Stats()

	resp := StatusResponse{
		Queries:      stats.Queries,
		EmptyResults: stats.EmptyResults,
		Reloads:      stats.Reloads,
		LastError:    stats.LastError,
		Uptime:       time.Since(stats.StartTime).Round(time.Second).String(),
	}
	if snap := s.Engine.Snapshot(); snap != nil {
		resp.Loaded = true
		resp.Source = snap.Source
		resp.Version = snap.Version
		resp.Products = snap.Catalog.Len()
		resp.Vocabulary = snap.Index.VocabularySize()
		resp.LoadedAt = snap.LoadedAt
	}
	if s.Engine.Images != nil {
		resp.ImageBreaker = s.Engine.Images.BreakerState()
	}

	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	var verr *recommend.ValidationError
	var schemaErr *catalog.SchemaError
	switch {
	case errors.As(err, &verr):
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid query", Fields: verr.Fields})
	case errors.Is(err, engine.ErrNoSnapshot):
		jsonResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "Export not found"})
	case errors.As(err, &schemaErr):
		jsonResponse(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Fields: schemaErr.Missing})
	default:
		s.Logger.WithError(err).Error("Request failed")
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(status), time.Since(start))
	})
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

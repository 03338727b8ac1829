// Package api serves the property search and nearby-amenities HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/amenity"
	"github.com/nestfind/nestfind/pkg/config"
	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/metrics"
	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/places"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// AmenityHandler answers nearby-amenity requests.
type AmenityHandler interface {
	Handle(ctx context.Context, req amenity.Request) (*models.NearbyResponse, error)
}

// PropertySearcher answers property searches.
type PropertySearcher interface {
	Search(ctx context.Context, f models.SearchFilters) (models.SearchResult, error)
}

// CacheStatter reports amenity cache statistics.
type CacheStatter interface {
	Stats() (models.CacheStats, error)
}

// Server is the nestfind HTTP API.
type Server struct {
	cfg        *config.Config
	amenities  AmenityHandler
	properties PropertySearcher
	cache      CacheStatter
	metrics    *metrics.Metrics
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request counts and exposes /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithCacheStats exposes GET /api/cache/stats.
func WithCacheStats(c CacheStatter) Option {
	return func(s *Server) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server wired with its dependencies.
func New(cfg *config.Config, a AmenityHandler, p PropertySearcher, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		amenities:  a,
		properties: p,
		mux:        http.NewServeMux(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = logger.OrNop(s.logger)

	s.handle("GET /api/properties/search", "search", s.handleSearch)
	s.handle("GET /api/properties/{id}/nearby-amenities", "nearby_amenities", s.handleNearbyAmenities)
	s.handle("GET /healthz", "healthz", s.handleHealth)
	if s.cache != nil {
		s.handle("GET /api/cache/stats", "cache_stats", s.handleCacheStats)
	}
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Places.Timeout*2 + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("nestfind api listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// handle registers h under pattern with request id, metrics and access logging.
func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)

		if s.metrics != nil {
			s.metrics.ObserveRequest(route, rec.code)
		}
		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.code),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleNearbyAmenities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := q.Get("categories")
	if raw == "" {
		raw = q.Get("types")
	}
	radius, err := intParam(q.Get("radius"), s.cfg.Amenities.DefaultRadius)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid radius")
		return
	}
	limit, err := intParam(q.Get("limit"), s.cfg.Amenities.DefaultLimit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	withDistance := s.cfg.Amenities.WithDistance
	if v := q.Get("distance"); v != "" {
		withDistance, err = strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid distance flag")
			return
		}
	}

	resp, err := s.amenities.Handle(r.Context(), amenity.Request{
		EntityID:         r.PathValue("id"),
		Categories:       strings.Split(raw, ","),
		RadiusMeters:     radius,
		PerCategoryLimit: limit,
		WithDistance:     withDistance,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.properties.Search(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseFilters(r *http.Request) (models.SearchFilters, error) {
	q := r.URL.Query()
	f := models.SearchFilters{
		City:         q.Get("city"),
		PropertyType: q.Get("propertyType"),
		SortBy:       models.SortField(q.Get("sortBy")),
	}
	var err error
	if f.MinPrice, err = int64Param(q.Get("minPrice")); err != nil {
		return f, errors.New("invalid minPrice")
	}
	if f.MaxPrice, err = int64Param(q.Get("maxPrice")); err != nil {
		return f, errors.New("invalid maxPrice")
	}
	minBedrooms, err := int64Param(q.Get("minBedrooms"))
	if err != nil {
		return f, errors.New("invalid minBedrooms")
	}
	f.MinBedrooms = int(minBedrooms)
	if f.Page, err = intParam(q.Get("page"), 1); err != nil {
		return f, errors.New("invalid page")
	}
	if f.Limit, err = intParam(q.Get("limit"), 10); err != nil {
		return f, errors.New("invalid limit")
	}
	return f, nil
}

// intParam parses a positive integer, returning def when v is empty.
func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid value %q", v)
	}
	return n, nil
}

// int64Param parses a non-negative integer; empty means zero.
func int64Param(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid value %q", v)
	}
	return n, nil
}

// writeError maps pipeline errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, amenity.ErrInvalidReference), errors.Is(err, amenity.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, amenity.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "property not found")
	case errors.Is(err, places.ErrProviderConfig):
		s.logger.Error("places provider misconfigured", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "places provider is not configured")
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"nestfind_error","code":%d}}`, message, code)
}

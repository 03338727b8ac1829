package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nestfind/nestfind/pkg/amenity"
	"github.com/nestfind/nestfind/pkg/config"
	"github.com/nestfind/nestfind/pkg/metrics"
	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/places"
	"github.com/nestfind/nestfind/pkg/store"
)

const testID = "65a1b2c3d4e5f60718293a4b"

type fakeAmenities struct {
	last amenity.Request
	err  error
}

func (f *fakeAmenities) Handle(_ context.Context, req amenity.Request) (*models.NearbyResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if err := amenity.Validate(req); err != nil {
		return nil, err
	}
	out := map[string][]models.AmenityRecord{}
	for _, c := range req.Categories {
		out[c] = []models.AmenityRecord{}
	}
	return &models.NearbyResponse{
		Property:     models.PropertySummary{ID: req.EntityID, Title: "Test"},
		Amenities:    out,
		SearchRadius: req.RadiusMeters,
		Timestamp:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func setupServer(t *testing.T, a AmenityHandler) (*Server, *store.SQLiteStore, *metrics.Metrics) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	return New(config.Default(), a, st, WithMetrics(m)), st, m
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestNearbyAmenities(t *testing.T) {
	fa := &fakeAmenities{}
	srv, _, _ := setupServer(t, fa)

	w := get(t, srv, "/api/properties/"+testID+"/nearby-amenities?categories=school,hospital&radius=3000&limit=3&distance=true")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fa.last.EntityID != testID {
		t.Errorf("expected id %s, got %s", testID, fa.last.EntityID)
	}
	if fa.last.RadiusMeters != 3000 || fa.last.PerCategoryLimit != 3 || !fa.last.WithDistance {
		t.Errorf("unexpected request %+v", fa.last)
	}

	var resp models.NearbyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SearchRadius != 3000 {
		t.Errorf("expected searchRadius 3000, got %d", resp.SearchRadius)
	}
	if _, ok := resp.Amenities["hospital"]; !ok {
		t.Error("expected hospital key in amenities")
	}
}

func TestNearbyAmenitiesDefaults(t *testing.T) {
	fa := &fakeAmenities{}
	srv, _, _ := setupServer(t, fa)

	w := get(t, srv, "/api/properties/"+testID+"/nearby-amenities?types=park")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fa.last.RadiusMeters != 5000 || fa.last.PerCategoryLimit != 5 || fa.last.WithDistance {
		t.Errorf("unexpected defaults %+v", fa.last)
	}
	if len(fa.last.Categories) != 1 || fa.last.Categories[0] != "park" {
		t.Errorf("expected types alias to set categories, got %v", fa.last.Categories)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		code   int
	}{
		{"bad id", "/api/properties/xyz/nearby-amenities?categories=school", nil, http.StatusBadRequest},
		{"no categories", "/api/properties/" + testID + "/nearby-amenities", nil, http.StatusBadRequest},
		{"bad radius", "/api/properties/" + testID + "/nearby-amenities?categories=school&radius=-1", nil, http.StatusBadRequest},
		{"bad limit", "/api/properties/" + testID + "/nearby-amenities?categories=school&limit=abc", nil, http.StatusBadRequest},
		{"bad distance", "/api/properties/" + testID + "/nearby-amenities?categories=school&distance=maybe", nil, http.StatusBadRequest},
		{"not found", "/api/properties/" + testID + "/nearby-amenities?categories=school", fmt.Errorf("%w: %w", amenity.ErrNotFound, store.ErrNotFound), http.StatusNotFound},
		{"provider config", "/api/properties/" + testID + "/nearby-amenities?categories=school", fmt.Errorf("enrich: %w", places.ErrProviderConfig), http.StatusInternalServerError},
		{"store failure", "/api/properties/" + testID + "/nearby-amenities?categories=school", fmt.Errorf("load property: disk"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := setupServer(t, &fakeAmenities{err: tt.err})
			w := get(t, srv, tt.target)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}

			var body struct {
				Error struct {
					Message string `json:"message"`
					Type    string `json:"type"`
					Code    int    `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body.Error.Code != tt.code || body.Error.Type != "nestfind_error" {
				t.Errorf("unexpected error body %+v", body)
			}
			if strings.Contains(body.Error.Message, "disk") {
				t.Errorf("internal error leaked: %q", body.Error.Message)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	srv, st, _ := setupServer(t, &fakeAmenities{})
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := store.Seed(context.Background(), st, store.SampleProperties(now)); err != nil {
		t.Fatal(err)
	}

	w := get(t, srv, "/api/properties/search?city=Delhi&sortBy=price&minBedrooms=2")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res models.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 || res.Page != 1 || res.Limit != 10 {
		t.Errorf("unexpected page %+v", res)
	}
	if len(res.Results) != 2 || res.Results[0].Price != 4800000 {
		t.Errorf("expected cheapest first, got %+v", res.Results)
	}

	w = get(t, srv, "/api/properties/search?minPrice=5000000")
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Results[0].Title != "Luxury Apartment in Delhi" {
		t.Errorf("unexpected price filter result %+v", res)
	}
}

func TestSearchBadParams(t *testing.T) {
	srv, _, _ := setupServer(t, &fakeAmenities{})
	for _, q := range []string{"minPrice=abc", "maxPrice=-5", "page=0", "limit=x", "minBedrooms=two"} {
		w := get(t, srv, "/api/properties/search?"+q)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	srv, _, _ := setupServer(t, &fakeAmenities{})

	w := get(t, srv, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := setupServer(t, &fakeAmenities{})
	get(t, srv, "/healthz")

	w := get(t, srv, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `route="healthz"`) {
		t.Error("expected healthz request to be counted")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := setupServer(t, &fakeAmenities{})
	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

type fakeCache struct{}

func (fakeCache) Stats() (models.CacheStats, error) {
	return models.CacheStats{Entries: 3, Hits: 7, Misses: 2}, nil
}

func TestCacheStats(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	srv := New(config.Default(), &fakeAmenities{}, st)
	if w := get(t, srv, "/api/cache/stats"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without cache, got %d", w.Code)
	}

	srv = New(config.Default(), &fakeAmenities{}, st, WithCacheStats(fakeCache{}))
	w := get(t, srv, "/api/cache/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats models.CacheStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 3 || stats.Hits != 7 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

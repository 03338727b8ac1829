package amenity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestfind/nestfind/pkg/cache"
	"github.com/nestfind/nestfind/pkg/config"
	"github.com/nestfind/nestfind/pkg/distance"
	"github.com/nestfind/nestfind/pkg/enrich"
	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/places"
	"github.com/nestfind/nestfind/pkg/store"
)

const validID = "65a1b2c3d4e5f60718293a4b"

type fakeFinder struct {
	props map[string]models.Property
	err   error
}

func (f fakeFinder) FindByID(_ context.Context, id string) (models.Property, error) {
	if f.err != nil {
		return models.Property{}, f.err
	}
	p, ok := f.props[id]
	if !ok {
		return models.Property{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return p, nil
}

type fakeEnricher struct {
	calls atomic.Int32
	out   map[string][]models.AmenityRecord
	err   error
}

func (f *fakeEnricher) Enrich(_ context.Context, _ string, _ models.LatLng, categories []string, _, _ int) (map[string][]models.AmenityRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	out := map[string][]models.AmenityRecord{}
	for _, c := range categories {
		out[c] = []models.AmenityRecord{}
	}
	return out, nil
}

func validRequest() Request {
	return Request{EntityID: validID, Categories: []string{"school"}, RadiusMeters: 3000, PerCategoryLimit: 5}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"valid", func(*Request) {}, nil},
		{"upper-case hex", func(r *Request) { r.EntityID = strings.ToUpper(validID) }, nil},
		{"short id", func(r *Request) { r.EntityID = "abc" }, ErrInvalidReference},
		{"non-hex id", func(r *Request) { r.EntityID = "zz" + validID[2:] }, ErrInvalidReference},
		{"no categories", func(r *Request) { r.Categories = nil }, ErrInvalidRequest},
		{"blank categories", func(r *Request) { r.Categories = []string{" ", ""} }, ErrInvalidRequest},
		{"zero radius", func(r *Request) { r.RadiusMeters = 0 }, ErrInvalidRequest},
		{"zero limit", func(r *Request) { r.PerCategoryLimit = 0 }, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := Validate(req)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestHandleInvalidSkipsStore(t *testing.T) {
	e := &fakeEnricher{}
	svc := New(fakeFinder{err: errors.New("must not be called")}, e)

	req := validRequest()
	req.EntityID = "nope"
	_, err := svc.Handle(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Zero(t, e.calls.Load())
}

func TestHandleNotFound(t *testing.T) {
	e := &fakeEnricher{}
	svc := New(fakeFinder{}, e)

	_, err := svc.Handle(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, e.calls.Load())
}

func TestHandleStoreError(t *testing.T) {
	svc := New(fakeFinder{err: errors.New("disk on fire")}, &fakeEnricher{})
	_, err := svc.Handle(context.Background(), validRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestHandleProviderConfigError(t *testing.T) {
	finder := fakeFinder{props: map[string]models.Property{validID: {ID: validID}}}
	svc := New(finder, &fakeEnricher{err: places.ErrProviderConfig})
	_, err := svc.Handle(context.Background(), validRequest())
	assert.ErrorIs(t, err, places.ErrProviderConfig)
}

type countingAugmenter struct{ calls int }

func (c *countingAugmenter) AugmentByCategory(_ context.Context, _ models.LatLng, m map[string][]models.AmenityRecord) map[string][]models.AmenityRecord {
	c.calls++
	return m
}

func TestHandleDistanceOnlyWhenAsked(t *testing.T) {
	finder := fakeFinder{props: map[string]models.Property{validID: {ID: validID}}}
	aug := &countingAugmenter{}
	svc := New(finder, &fakeEnricher{}, WithDistance(aug))

	_, err := svc.Handle(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Zero(t, aug.calls)

	req := validRequest()
	req.WithDistance = true
	_, err = svc.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, aug.calls)
}

// provider serves nearby search and distance matrix from canned data.
func provider(t *testing.T, byType map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/place/nearbysearch/json":
			n := byType[q.Get("type")]
			if n == 0 {
				fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
				return
			}
			results := make([]map[string]any, n)
			for i := range results {
				results[i] = map[string]any{
					"place_id": fmt.Sprintf("%s-%d", q.Get("type"), i),
					"name":     fmt.Sprintf("%s %d", q.Get("type"), i),
					"vicinity": "Connaught Place",
					"geometry": map[string]any{"location": map[string]float64{"lat": 28.62 + float64(i)/1000, "lng": 77.21}},
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": results})
		case "/distancematrix/json":
			dests := strings.Split(q.Get("destinations"), "|")
			elems := make([]map[string]any, len(dests))
			for i := range elems {
				elems[i] = map[string]any{
					"status":   "OK",
					"distance": map[string]any{"text": fmt.Sprintf("%d.0 km", i+1), "value": (i + 1) * 1000},
					"duration": map[string]any{"text": fmt.Sprintf("%d mins", i+2), "value": (i + 2) * 60},
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "rows": []any{map[string]any{"elements": elems}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleEndToEnd(t *testing.T) {
	srv := provider(t, map[string]int{"school": 3})

	st, err := store.New(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	prop := models.Property{
		Title:        "Luxury Apartment in Delhi",
		Coordinates:  models.LatLng{Lat: 28.6139, Lng: 77.209},
		PropertyType: "apartment",
		Location:     models.Address{City: "Delhi"},
	}
	require.NoError(t, st.Insert(context.Background(), &prop))

	client := places.New(config.PlacesConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 2 * time.Second})
	fixed := time.Date(2026, 4, 1, 10, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	svc := New(st,
		enrich.New(cache.New(), client),
		WithDistance(distance.New(client)),
		WithClock(func() time.Time { return fixed }),
	)

	resp, err := svc.Handle(context.Background(), Request{
		EntityID:         prop.ID,
		Categories:       []string{"school", "hospital"},
		RadiusMeters:     3000,
		PerCategoryLimit: 5,
		WithDistance:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, prop.ID, resp.Property.ID)
	assert.Equal(t, "Luxury Apartment in Delhi", resp.Property.Title)
	assert.Equal(t, prop.Coordinates, resp.Property.Coordinates)
	assert.Equal(t, 3000, resp.SearchRadius)
	assert.Equal(t, time.UTC, resp.Timestamp.Location())
	assert.True(t, resp.Timestamp.Equal(fixed))

	require.Len(t, resp.Amenities["school"], 3)
	require.Contains(t, resp.Amenities, "hospital")
	assert.Empty(t, resp.Amenities["hospital"])

	// hospital has nothing, so the flattened batch is the three schools
	for i, a := range resp.Amenities["school"] {
		assert.Equal(t, fmt.Sprintf("school %d", i), a.Name)
		assert.Equal(t, fmt.Sprintf("%d.0 km", i+1), a.Distance)
		assert.Equal(t, fmt.Sprintf("%d mins", i+2), a.Duration)
	}

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"hospital":[]`)
	assert.Contains(t, string(body), `"searchRadius":3000`)
}

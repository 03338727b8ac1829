package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/nestfind/nestfind/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var base = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func insert(t *testing.T, s *SQLiteStore, p models.Property) models.Property {
	t.Helper()
	if err := s.Insert(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{24}$`)
	seen := map[string]bool{}
	for range 100 {
		id := NewID()
		if !re.MatchString(id) {
			t.Fatalf("unexpected id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestInsertAndFindByID(t *testing.T) {
	s := newTestStore(t)
	p := insert(t, s, models.Property{
		Title:        "Loft",
		Price:        100,
		Location:     models.Address{City: "Pune", State: "MH", Pincode: "411001"},
		Coordinates:  models.LatLng{Lat: 18.52, Lng: 73.85},
		PropertyType: "apartment",
		Bedrooms:     1,
		Amenities:    []string{"Gym"},
		ListedDate:   base,
	})
	if p.ID == "" {
		t.Fatal("expected id to be assigned")
	}

	got, err := s.FindByID(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Loft" || got.Location.City != "Pune" {
		t.Errorf("unexpected property: %+v", got)
	}
	if got.Coordinates != p.Coordinates {
		t.Errorf("expected coordinates %v, got %v", p.Coordinates, got.Coordinates)
	}
	if len(got.Amenities) != 1 || got.Amenities[0] != "Gym" {
		t.Errorf("expected amenities [Gym], got %v", got.Amenities)
	}
	if got.Images == nil {
		t.Error("expected empty images slice, got nil")
	}
	if got.Status != "available" {
		t.Errorf("expected default status available, got %q", got.Status)
	}
	if !got.ListedDate.Equal(base) {
		t.Errorf("expected listed date %v, got %v", base, got.ListedDate)
	}
}

func TestFindByIDCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	p := insert(t, s, models.Property{ID: "65A1B2C3D4E5F60718293A4B", Title: "x", PropertyType: "flat", ListedDate: base})

	if _, err := s.FindByID(context.Background(), "65a1b2c3d4e5f60718293a4b"); err != nil {
		t.Fatalf("lower-case lookup: %v", err)
	}
	if _, err := s.FindByID(context.Background(), p.ID); err != nil {
		t.Fatalf("stored id lookup: %v", err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindByID(context.Background(), "000000000000000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func seedSearchFixtures(t *testing.T, s *SQLiteStore) {
	t.Helper()
	fixtures := []models.Property{
		{Title: "A", Price: 300, Location: models.Address{City: "Delhi"}, PropertyType: "flat", Bedrooms: 2, ListedDate: base.Add(1 * time.Hour)},
		{Title: "B", Price: 100, Location: models.Address{City: "Delhi"}, PropertyType: "apartment", Bedrooms: 3, ListedDate: base.Add(3 * time.Hour)},
		{Title: "C", Price: 200, Location: models.Address{City: "Mumbai"}, PropertyType: "flat", Bedrooms: 1, ListedDate: base.Add(2 * time.Hour)},
		{Title: "D", Price: 500, Location: models.Address{City: "Delhi"}, PropertyType: "flat", Bedrooms: 4, ListedDate: base},
	}
	for _, p := range fixtures {
		insert(t, s, p)
	}
}

func titles(r models.SearchResult) []string {
	out := make([]string, len(r.Results))
	for i, p := range r.Results {
		out[i] = p.Title
	}
	return out
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	seedSearchFixtures(t, s)

	tests := []struct {
		name    string
		filters models.SearchFilters
		total   int64
		want    []string
	}{
		{"default newest first", models.SearchFilters{}, 4, []string{"B", "C", "A", "D"}},
		{"price ascending", models.SearchFilters{SortBy: models.SortByPrice}, 4, []string{"B", "C", "A", "D"}},
		{"city", models.SearchFilters{City: "Delhi", SortBy: models.SortByPrice}, 3, []string{"B", "A", "D"}},
		{"price range", models.SearchFilters{MinPrice: 150, MaxPrice: 350, SortBy: models.SortByPrice}, 2, []string{"C", "A"}},
		{"type", models.SearchFilters{PropertyType: "flat"}, 3, []string{"C", "A", "D"}},
		{"bedrooms", models.SearchFilters{MinBedrooms: 3}, 2, []string{"B", "D"}},
		{"page two", models.SearchFilters{SortBy: models.SortByPrice, Page: 2, Limit: 3}, 4, []string{"D"}},
		{"beyond last page", models.SearchFilters{Page: 5, Limit: 3}, 4, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Search(context.Background(), tt.filters)
			if err != nil {
				t.Fatal(err)
			}
			if res.Total != tt.total {
				t.Errorf("expected total %d, got %d", tt.total, res.Total)
			}
			got := titles(res)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestSearchDefaults(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Search(context.Background(), models.SearchFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Page != DefaultPage || res.Limit != DefaultLimit {
		t.Errorf("expected page %d limit %d, got %d %d", DefaultPage, DefaultLimit, res.Page, res.Limit)
	}
	if res.Results == nil {
		t.Error("expected empty results slice, got nil")
	}
}

func TestSeedReplacesContents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insert(t, s, models.Property{Title: "old", PropertyType: "flat", ListedDate: base})

	props, err := Seed(ctx, s, SampleProperties(base))
	if err != nil {
		t.Fatal(err)
	}
	if len(props) != 2 {
		t.Fatalf("expected 2 seeded properties, got %d", len(props))
	}

	res, err := s.Search(ctx, models.SearchFilters{City: "Delhi"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Errorf("expected 2 properties after seed, got %d", res.Total)
	}

	got, err := s.FindByID(ctx, props[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Coordinates.Lat != 28.6139 || got.Coordinates.Lng != 77.209 {
		t.Errorf("unexpected coordinates %v", got.Coordinates)
	}
}

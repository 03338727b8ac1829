package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nestfind/nestfind/pkg/models"
)

func TestPrintNearby(t *testing.T) {
	rating, reviews := 4.5, 1200
	resp := &models.NearbyResponse{
		Property: models.PropertySummary{ID: "65a1b2c3d4e5f60718293a4b", Title: "Luxury Apartment in Delhi"},
		Amenities: map[string][]models.AmenityRecord{
			"school": {{
				Name: "Modern School", Address: "Barakhamba Road",
				Distance: "1.2 km", Duration: "6 mins",
				Rating: &rating, ReviewCount: &reviews,
			}},
			"hospital": {},
		},
		SearchRadius: 3000,
		Timestamp:    time.Now(),
	}

	var out bytes.Buffer
	if err := printNearby(&out, resp); err != nil {
		t.Fatal(err)
	}
	text := out.String()

	for _, want := range []string{"3,000 m", "Modern School", "4.5", "1,200", "1.2 km", "hospital", "(none)"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
	if strings.Index(text, "\nhospital") > strings.Index(text, "\nschool") {
		t.Errorf("expected categories in sorted order:\n%s", text)
	}
}

func TestDash(t *testing.T) {
	if dash("") != "-" {
		t.Error("expected dash for empty string")
	}
	if dash("5 mins") != "5 mins" {
		t.Error("expected value to pass through")
	}
}

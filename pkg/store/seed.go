package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nestfind/nestfind/pkg/models"
)

// SampleProperties returns the demo listings, all listed at now.
func SampleProperties(now time.Time) []models.Property {
	return []models.Property{
		{
			Title:        "Luxury Apartment in Delhi",
			Description:  "Beautiful 3BHK apartment in South Delhi",
			Price:        7500000,
			Location:     models.Address{City: "Delhi", State: "Delhi", Pincode: "110001"},
			Coordinates:  models.LatLng{Lat: 28.6139, Lng: 77.209},
			PropertyType: "apartment",
			Bedrooms:     3,
			Bathrooms:    2,
			Area:         1500,
			Amenities:    []string{"Gym", "Pool"},
			Images:       []string{"https://example.com/img1.jpg"},
			ListedDate:   now,
			Status:       "available",
		},
		{
			Title:        "Affordable Flat in Delhi",
			Description:  "2BHK flat near metro station",
			Price:        4800000,
			Location:     models.Address{City: "Delhi", State: "Delhi", Pincode: "110092"},
			Coordinates:  models.LatLng{Lat: 28.6205, Lng: 77.2966},
			PropertyType: "flat",
			Bedrooms:     2,
			Bathrooms:    1,
			Area:         950,
			Amenities:    []string{"Parking", "Elevator"},
			Images:       []string{"https://example.com/img2.jpg"},
			ListedDate:   now,
			Status:       "available",
		},
	}
}

// Seed replaces the store contents with props and returns them with ids set.
func Seed(ctx context.Context, s Store, props []models.Property) ([]models.Property, error) {
	if err := s.DeleteAll(ctx); err != nil {
		return nil, err
	}
	for i := range props {
		if err := s.Insert(ctx, &props[i]); err != nil {
			return nil, fmt.Errorf("seed %q: %w", props[i].Title, err)
		}
	}
	return props, nil
}

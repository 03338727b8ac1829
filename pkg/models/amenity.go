package models

import "time"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// AmenityRecord is a point of interest near a property.
// Distance and Duration stay empty until distance augmentation fills them.
type AmenityRecord struct {
	Name        string   `json:"name"`
	Category    string   `json:"type"`
	Address     string   `json:"address"`
	Distance    string   `json:"distance"`
	Duration    string   `json:"duration"`
	PlaceID     string   `json:"placeId"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"userRatingsTotal,omitempty"`
	Location    LatLng   `json:"location"`
}

// PropertySummary identifies the property an amenity search is anchored on.
type PropertySummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Coordinates LatLng `json:"coordinates"`
}

// NearbyResponse is the assembled nearby-amenities result.
type NearbyResponse struct {
	Property     PropertySummary            `json:"property"`
	Amenities    map[string][]AmenityRecord `json:"amenities"`
	SearchRadius int                        `json:"searchRadius"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// DistanceElement is one destination cell of a distance-matrix response.
type DistanceElement struct {
	Status   string `json:"status"`
	Distance string `json:"distance"`
	Duration string `json:"duration"`
}

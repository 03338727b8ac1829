package models

import "time"

// Address is the postal location of a property.
type Address struct {
	City    string `json:"city" yaml:"city"`
	State   string `json:"state" yaml:"state"`
	Pincode string `json:"pincode" yaml:"pincode"`
}

// Property is a listing in the property store.
type Property struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Description  string    `json:"description,omitempty" yaml:"description"`
	Price        int64     `json:"price" yaml:"price"`
	Location     Address   `json:"location" yaml:"location"`
	Coordinates  LatLng    `json:"coordinates" yaml:"coordinates"`
	PropertyType string    `json:"propertyType" yaml:"property_type"`
	Bedrooms     int       `json:"bedrooms" yaml:"bedrooms"`
	Bathrooms    int       `json:"bathrooms,omitempty" yaml:"bathrooms"`
	Area         int       `json:"area,omitempty" yaml:"area"`
	Amenities    []string  `json:"amenities" yaml:"amenities"`
	Images       []string  `json:"images" yaml:"images"`
	ListedDate   time.Time `json:"listedDate" yaml:"listed_date"`
	Status       string    `json:"status" yaml:"status"`
}

// SortField selects the ordering of a property search.
type SortField string

const (
	SortByListedDate SortField = "listedDate"
	SortByPrice      SortField = "price"
)

// SearchFilters narrows a property search. Zero values mean "no filter".
type SearchFilters struct {
	City         string
	MinPrice     int64
	MaxPrice     int64
	PropertyType string
	MinBedrooms  int
	SortBy       SortField
	Page         int
	Limit        int
}

// SearchResult is one page of a property search.
type SearchResult struct {
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
	Results []Property `json:"results"`
}

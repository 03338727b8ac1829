package places

import "github.com/nestfind/nestfind/pkg/models"

// Wire shapes of the provider's JSON responses.

type envelope interface {
	status() (code, message string)
}

type rawLatLng struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type rawPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	Geometry         *struct {
		Location *rawLatLng `json:"location"`
	} `json:"geometry"`
}

// toRecord converts a raw result, rejecting results without an id, a name
// or valid coordinates.
func (p rawPlace) toRecord(category string) (models.AmenityRecord, bool) {
	if p.PlaceID == "" || p.Name == "" {
		return models.AmenityRecord{}, false
	}
	if p.Geometry == nil || p.Geometry.Location == nil ||
		p.Geometry.Location.Lat == nil || p.Geometry.Location.Lng == nil {
		return models.AmenityRecord{}, false
	}
	loc := models.LatLng{Lat: *p.Geometry.Location.Lat, Lng: *p.Geometry.Location.Lng}
	if !loc.Valid() {
		return models.AmenityRecord{}, false
	}

	addr := p.Vicinity
	if addr == "" {
		addr = p.FormattedAddress
	}
	return models.AmenityRecord{
		Name:        p.Name,
		Category:    category,
		Address:     addr,
		PlaceID:     p.PlaceID,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingsTotal,
		Location:    loc,
	}, true
}

type nearbyResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Results      []rawPlace `json:"results"`
}

func (r *nearbyResponse) status() (string, string) { return r.Status, r.ErrorMessage }

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name             string   `json:"name"`
		Rating           *float64 `json:"rating"`
		UserRatingsTotal *int     `json:"user_ratings_total"`
		FormattedAddress string   `json:"formatted_address"`
	} `json:"result"`
}

func (r *detailsResponse) status() (string, string) { return r.Status, r.ErrorMessage }

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string     `json:"status"`
			Distance *textValue `json:"distance"`
			Duration *textValue `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (r *matrixResponse) status() (string, string) { return r.Status, r.ErrorMessage }

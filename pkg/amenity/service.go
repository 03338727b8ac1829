// Package amenity answers nearby-amenity requests for a stored property.
package amenity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/enrich"
	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/store"
)

var (
	// ErrInvalidReference is returned for a malformed property id.
	ErrInvalidReference = errors.New("invalid property id")
	// ErrInvalidRequest is returned for bad categories, radius or limit.
	ErrInvalidRequest = errors.New("invalid amenity request")
	// ErrNotFound is returned when the property does not exist.
	ErrNotFound = errors.New("property not found")
)

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Request asks for amenities around one property.
type Request struct {
	EntityID         string
	Categories       []string
	RadiusMeters     int
	PerCategoryLimit int
	WithDistance     bool
}

// PropertyFinder loads a property by id.
type PropertyFinder interface {
	FindByID(ctx context.Context, id string) (models.Property, error)
}

// Enricher resolves amenities per category.
type Enricher interface {
	Enrich(ctx context.Context, entityID string, origin models.LatLng, categories []string, radiusMeters, perCategoryLimit int) (map[string][]models.AmenityRecord, error)
}

// DistanceAugmenter fills travel distance and duration.
type DistanceAugmenter interface {
	AugmentByCategory(ctx context.Context, origin models.LatLng, byCategory map[string][]models.AmenityRecord) map[string][]models.AmenityRecord
}

// Service handles nearby-amenity requests.
type Service struct {
	properties PropertyFinder
	enricher   Enricher
	distance   DistanceAugmenter
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDistance enables distance augmentation for requests that ask for it.
func WithDistance(d DistanceAugmenter) Option {
	return func(s *Service) { s.distance = d }
}

// WithClock sets the source of response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(p PropertyFinder, e Enricher, opts ...Option) *Service {
	s := &Service{properties: p, enricher: e, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.logger = logger.OrNop(s.logger)
	return s
}

// Validate checks a request without touching the store or the provider.
func Validate(req Request) error {
	if !idPattern.MatchString(req.EntityID) {
		return fmt.Errorf("%w: %q", ErrInvalidReference, req.EntityID)
	}
	if len(enrich.NormalizeCategories(req.Categories)) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidRequest)
	}
	if req.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %d", ErrInvalidRequest, req.RadiusMeters)
	}
	if req.PerCategoryLimit < 1 {
		return fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidRequest, req.PerCategoryLimit)
	}
	return nil
}

// Handle validates the request, loads the property, enriches it and, when
// asked, augments the amenities with travel distance.
func (s *Service) Handle(ctx context.Context, req Request) (*models.NearbyResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	prop, err := s.properties.FindByID(ctx, req.EntityID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	}

	amenities, err := s.enricher.Enrich(ctx, prop.ID, prop.Coordinates, req.Categories, req.RadiusMeters, req.PerCategoryLimit)
	if err != nil {
		return nil, fmt.Errorf("enrich property %s: %w", prop.ID, err)
	}

	if req.WithDistance {
		if s.distance == nil {
			s.logger.Debug("distance requested but not configured", zap.String("entity_id", prop.ID))
		} else {
			amenities = s.distance.AugmentByCategory(ctx, prop.Coordinates, amenities)
		}
	}

	return &models.NearbyResponse{
		Property: models.PropertySummary{
			ID:          prop.ID,
			Title:       prop.Title,
			Coordinates: prop.Coordinates,
		},
		Amenities:    amenities,
		SearchRadius: req.RadiusMeters,
		Timestamp:    s.now().UTC(),
	}, nil
}

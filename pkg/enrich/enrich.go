// Package enrich resolves amenities per category for a property, reading
// through the amenity cache to the places provider.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nestfind/nestfind/pkg/cache"
	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/places"
)

const (
	// DefaultTTL is how long a fetched category stays cached.
	DefaultTTL = 10 * time.Minute
	// DefaultConcurrency bounds in-flight category fetches per call.
	DefaultConcurrency = 4
)

// Searcher finds places of a category around a point.
type Searcher interface {
	SearchNearby(ctx context.Context, origin models.LatLng, category string, radiusMeters int) ([]models.AmenityRecord, error)
}

// DetailsFetcher looks up details for a single place.
type DetailsFetcher interface {
	GetPlaceDetails(ctx context.Context, placeID string) (places.PlaceDetails, error)
}

// Service enriches a property with nearby amenities.
type Service struct {
	cache       *cache.Cache
	searcher    Searcher
	details     DetailsFetcher
	ttl         time.Duration
	concurrency int
	logger      *zap.Logger
	flights     singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

// WithDetails fills missing ratings from the place details API.
func WithDetails(d DetailsFetcher) Option {
	return func(s *Service) { s.details = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(c *cache.Cache, s Searcher, opts ...Option) *Service {
	svc := &Service{
		cache:       c,
		searcher:    s,
		ttl:         DefaultTTL,
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(svc)
	}
	if svc.concurrency < 1 {
		svc.concurrency = 1
	}
	svc.logger = logger.OrNop(svc.logger)
	return svc
}

// NormalizeCategories trims, drops empty tokens and de-duplicates while
// keeping first-seen order.
func NormalizeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Enrich returns up to perCategoryLimit amenities for every category.
//
// Categories are fetched concurrently and independently. A provider failure
// for one category is logged and yields an empty list for it. The only error
// returned is places.ErrProviderConfig, which no category can recover from.
func (s *Service) Enrich(ctx context.Context, entityID string, origin models.LatLng, categories []string, radiusMeters, perCategoryLimit int) (map[string][]models.AmenityRecord, error) {
	categories = NormalizeCategories(categories)
	if len(categories) == 0 {
		return nil, errors.New("enrich: no categories")
	}
	if radiusMeters <= 0 || perCategoryLimit < 1 {
		return nil, fmt.Errorf("enrich: invalid radius %d or limit %d", radiusMeters, perCategoryLimit)
	}

	var (
		mu  sync.Mutex
		out = make(map[string][]models.AmenityRecord, len(categories))
		g   errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, category := range categories {
		g.Go(func() error {
			recs, err := s.fetchCategory(ctx, entityID, origin, category, radiusMeters, perCategoryLimit)
			if errors.Is(err, places.ErrProviderConfig) {
				return err
			}
			if err != nil {
				s.logger.Warn("amenity category fetch failed",
					zap.String("entity_id", entityID),
					zap.String("category", category),
					zap.Error(err))
				recs = nil
			}
			if recs == nil {
				recs = []models.AmenityRecord{}
			}
			mu.Lock()
			out[category] = recs
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) fetchCategory(ctx context.Context, entityID string, origin models.LatLng, category string, radiusMeters, limit int) ([]models.AmenityRecord, error) {
	if recs, ok := s.cache.Get(entityID, category); ok {
		return recs[:min(len(recs), limit)], nil
	}

	// Concurrent misses for the same pair share one provider call. The call
	// outlives a cancelled caller so the cache still gets populated.
	key := fmt.Sprintf("%s:%d:%d", cache.Key(entityID, category), radiusMeters, limit)
	v, err, _ := s.flights.Do(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		recs, err := s.searcher.SearchNearby(fctx, origin, category, radiusMeters)
		if err != nil {
			return nil, err
		}
		if len(recs) > limit {
			recs = recs[:limit]
		}
		recs = s.fillDetails(fctx, slices.Clone(recs))
		s.cache.Set(entityID, category, recs, s.ttl)
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]models.AmenityRecord)), nil
}

// fillDetails completes records the nearby search returned without a rating.
func (s *Service) fillDetails(ctx context.Context, recs []models.AmenityRecord) []models.AmenityRecord {
	if s.details == nil {
		return recs
	}
	for i := range recs {
		if recs[i].Rating != nil {
			continue
		}
		d, err := s.details.GetPlaceDetails(ctx, recs[i].PlaceID)
		if err != nil {
			s.logger.Debug("place details failed", zap.String("place_id", recs[i].PlaceID), zap.Error(err))
			continue
		}
		recs[i].Rating = d.Rating
		recs[i].ReviewCount = d.ReviewCount
		if recs[i].Address == "" {
			recs[i].Address = d.Address
		}
	}
	return recs
}

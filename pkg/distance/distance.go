// Package distance fills travel distance and duration on amenity records
// using batched distance-matrix calls.
package distance

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/places"
)

// MaxBatchSize is the largest destination count per matrix request.
const MaxBatchSize = places.MaxDestinations

// Matrix resolves one origin against many destinations, positionally.
type Matrix interface {
	DistanceMatrix(ctx context.Context, origin models.LatLng, destinations []models.LatLng) ([]models.DistanceElement, error)
}

// Augmenter fills Distance and Duration on amenity records.
type Augmenter struct {
	matrix    Matrix
	batchSize int
	logger    *zap.Logger
}

// Option configures an Augmenter.
type Option func(*Augmenter)

// WithBatchSize sets the destinations per request, clamped to 1..MaxBatchSize.
func WithBatchSize(n int) Option {
	return func(a *Augmenter) { a.batchSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Augmenter) { a.logger = l }
}

// New creates an Augmenter.
func New(m Matrix, opts ...Option) *Augmenter {
	a := &Augmenter{matrix: m, batchSize: MaxBatchSize}
	for _, o := range opts {
		o(a)
	}
	if a.batchSize < 1 || a.batchSize > MaxBatchSize {
		a.batchSize = MaxBatchSize
	}
	a.logger = logger.OrNop(a.logger)
	return a
}

// Augment returns a copy of amenities with distance and duration filled
// where the provider answered OK. Length and order are preserved.
//
// Batches are requested one after another in slice order. A failed batch
// leaves its records empty and does not affect the others.
func (a *Augmenter) Augment(ctx context.Context, origin models.LatLng, amenities []models.AmenityRecord) []models.AmenityRecord {
	out := slices.Clone(amenities)
	if len(out) == 0 {
		return out
	}

	for start := 0; start < len(out); start += a.batchSize {
		end := min(start+a.batchSize, len(out))
		batch := out[start:end]

		dests := make([]models.LatLng, len(batch))
		for i, r := range batch {
			dests[i] = r.Location
		}

		elems, err := a.matrix.DistanceMatrix(ctx, origin, dests)
		if errors.Is(err, places.ErrProviderConfig) {
			a.logger.Error("distance augmentation aborted", zap.Error(err))
			break
		}
		if err != nil {
			a.logger.Warn("distance batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			continue
		}

		for i := range batch {
			if i >= len(elems) || elems[i].Status != "OK" {
				continue
			}
			batch[i].Distance = elems[i].Distance
			batch[i].Duration = elems[i].Duration
		}
	}
	return out
}

// AugmentByCategory augments every category in one pass. Categories are
// flattened in sorted key order and split back afterwards, so each category
// keeps its own record order.
func (a *Augmenter) AugmentByCategory(ctx context.Context, origin models.LatLng, byCategory map[string][]models.AmenityRecord) map[string][]models.AmenityRecord {
	keys := make([]string, 0, len(byCategory))
	total := 0
	for k, v := range byCategory {
		keys = append(keys, k)
		total += len(v)
	}
	slices.Sort(keys)

	flat := make([]models.AmenityRecord, 0, total)
	for _, k := range keys {
		flat = append(flat, byCategory[k]...)
	}
	flat = a.Augment(ctx, origin, flat)

	out := make(map[string][]models.AmenityRecord, len(byCategory))
	offset := 0
	for _, k := range keys {
		n := len(byCategory[k])
		out[k] = slices.Clone(flat[offset : offset+n])
		if out[k] == nil {
			out[k] = []models.AmenityRecord{}
		}
		offset += n
	}
	return out
}

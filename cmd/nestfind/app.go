package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/amenity"
	"github.com/nestfind/nestfind/pkg/cache"
	"github.com/nestfind/nestfind/pkg/config"
	"github.com/nestfind/nestfind/pkg/distance"
	"github.com/nestfind/nestfind/pkg/enrich"
	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/metrics"
	"github.com/nestfind/nestfind/pkg/places"
	"github.com/nestfind/nestfind/pkg/quota"
	"github.com/nestfind/nestfind/pkg/store"
	"github.com/nestfind/nestfind/pkg/usage"
)

// app holds every wired component for one command invocation.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	metrics   *metrics.Metrics
	store     *store.SQLiteStore
	usage     *usage.SQLiteLog
	quota     *quota.Enforcer
	cache     *cache.Cache
	places    *places.Client
	amenities *amenity.Service
}

// newApp loads configuration and wires the pipeline.
func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	a.store, err = store.New(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init property store: %w", err)
	}

	placesOpts := []places.Option{
		places.WithLogger(log.Named("places")),
		places.WithRecorder(a.metrics),
	}
	if cfg.Usage.Enabled || cfg.Quota.Enabled {
		a.usage, err = usage.New(cfg.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init usage log: %w", err)
		}
		placesOpts = append(placesOpts, places.WithRecorder(a.usage))
	}
	if cfg.Quota.Enabled {
		a.quota = quota.New(cfg.Quota.DailyCalls, a.usage)
		placesOpts = append(placesOpts, places.WithLimiter(a.quota))
	}
	a.places = places.New(cfg.Places, placesOpts...)
	if !a.places.Configured() {
		log.Warn("no places API key configured; amenity requests will fail")
	}

	a.cache = cache.New(
		cache.WithMaxEntries(cfg.Amenities.MaxEntries),
		cache.WithShards(cfg.Amenities.Shards),
		cache.WithMetrics(a.metrics),
	)

	enrichOpts := []enrich.Option{
		enrich.WithTTL(cfg.Amenities.TTL),
		enrich.WithConcurrency(cfg.Amenities.Concurrency),
		enrich.WithLogger(log.Named("enrich")),
	}
	if cfg.Amenities.FetchDetails {
		enrichOpts = append(enrichOpts, enrich.WithDetails(a.places))
	}

	a.amenities = amenity.New(a.store,
		enrich.New(a.cache, a.places, enrichOpts...),
		amenity.WithDistance(distance.New(a.places,
			distance.WithBatchSize(cfg.Distance.BatchSize),
			distance.WithLogger(log.Named("distance")))),
		amenity.WithLogger(log.Named("amenity")),
	)
	return a, nil
}

// request builds an amenity request with configured defaults.
func (a *app) request(id string, categories []string, radius, limit int) amenity.Request {
	if radius == 0 {
		radius = a.cfg.Amenities.DefaultRadius
	}
	if limit == 0 {
		limit = a.cfg.Amenities.DefaultLimit
	}
	return amenity.Request{
		EntityID:         id,
		Categories:       categories,
		RadiusMeters:     radius,
		PerCategoryLimit: limit,
		WithDistance:     a.cfg.Amenities.WithDistance,
	}
}

// startRetention schedules usage log cleanup; the returned func stops it.
func (a *app) startRetention() (func(), error) {
	if a.usage == nil || a.cfg.Usage.RetentionDays <= 0 {
		return func() {}, nil
	}
	r, err := usage.NewRetention(a.usage, a.cfg.Usage.CleanupSchedule,
		time.Duration(a.cfg.Usage.RetentionDays)*24*time.Hour, a.log.Named("usage"))
	if err != nil {
		return nil, err
	}
	if _, err := r.RunOnce(context.Background()); err != nil {
		a.log.Warn("initial usage cleanup failed", zap.Error(err))
	}
	r.Start()
	return r.Stop, nil
}

// Close releases databases and flushes the logger.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.usage != nil {
		errs = append(errs, a.usage.Close())
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

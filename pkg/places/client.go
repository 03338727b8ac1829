// Package places is a client for the external places provider: nearby
// search, place details and the distance matrix.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/config"
	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/models"
)

var (
	// ErrProviderConfig is returned when no API key is configured or the
	// provider rejects the configured key.
	ErrProviderConfig = errors.New("places provider: not configured")
	// ErrProviderUnavailable covers transport errors, timeouts, non-success
	// HTTP statuses and provider-level failures.
	ErrProviderUnavailable = errors.New("places provider unavailable")
)

// MaxDestinations is the distance-matrix per-call destination limit.
const MaxDestinations = config.MaxDistanceBatch

// Recorder receives one entry per outbound call.
type Recorder interface {
	RecordCall(ctx context.Context, call models.ProviderCall) error
}

// Limiter is consulted before every outbound call.
type Limiter interface {
	Allow(ctx context.Context) error
}

// PlaceDetails is the subset of place details the pipeline uses.
type PlaceDetails struct {
	Name        string
	Rating      *float64
	ReviewCount *int
	Address     string
}

// Client calls the places provider. It performs no retries.
type Client struct {
	apiKey    string
	baseURL   string
	mode      string
	timeout   time.Duration
	http      *http.Client
	recorders []Recorder
	limiter   Limiter
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRecorder adds a call recorder. Nil recorders are ignored.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// WithLimiter sets the call limiter.
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client from the provider configuration.
func New(cfg config.PlacesConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		mode:    cfg.DistanceMode,
		timeout: cfg.Timeout,
		now:     time.Now,
	}
	if c.mode == "" {
		c.mode = "driving"
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	c.logger = logger.OrNop(c.logger)
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// SearchNearby returns places of the given category within radiusMeters of
// origin, in provider order. Malformed results are dropped.
func (c *Client) SearchNearby(ctx context.Context, origin models.LatLng, category string, radiusMeters int) ([]models.AmenityRecord, error) {
	params := url.Values{}
	params.Set("location", formatLatLng(origin))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("type", category)

	var resp nearbyResponse
	if err := c.get(ctx, models.EndpointNearbySearch, category, "/place/nearbysearch/json", params, &resp, "OK", "ZERO_RESULTS"); err != nil {
		return nil, fmt.Errorf("nearby search %q: %w", category, err)
	}

	out := make([]models.AmenityRecord, 0, len(resp.Results))
	for _, raw := range resp.Results {
		rec, ok := raw.toRecord(category)
		if !ok {
			c.logger.Debug("dropping malformed place",
				zap.String("category", category), zap.String("place_id", raw.PlaceID))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetPlaceDetails fetches name, rating, review count and address for a place.
func (c *Client) GetPlaceDetails(ctx context.Context, placeID string) (PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,rating,user_ratings_total,formatted_address")

	var resp detailsResponse
	if err := c.get(ctx, models.EndpointPlaceDetails, "", "/place/details/json", params, &resp, "OK"); err != nil {
		return PlaceDetails{}, fmt.Errorf("place details %q: %w", placeID, err)
	}
	return PlaceDetails{
		Name:        resp.Result.Name,
		Rating:      resp.Result.Rating,
		ReviewCount: resp.Result.UserRatingsTotal,
		Address:     resp.Result.FormattedAddress,
	}, nil
}

// DistanceMatrix returns one element per destination, in submission order.
// A response with fewer elements than destinations is an error.
func (c *Client) DistanceMatrix(ctx context.Context, origin models.LatLng, destinations []models.LatLng) ([]models.DistanceElement, error) {
	if len(destinations) == 0 {
		return nil, nil
	}
	if len(destinations) > MaxDestinations {
		return nil, fmt.Errorf("distance matrix: %d destinations exceeds limit of %d", len(destinations), MaxDestinations)
	}

	dests := make([]string, len(destinations))
	for i, d := range destinations {
		dests[i] = formatLatLng(d)
	}
	params := url.Values{}
	params.Set("origins", formatLatLng(origin))
	params.Set("destinations", strings.Join(dests, "|"))
	params.Set("mode", c.mode)

	var resp matrixResponse
	if err := c.get(ctx, models.EndpointDistanceMatrix, "", "/distancematrix/json", params, &resp, "OK"); err != nil {
		return nil, fmt.Errorf("distance matrix: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) < len(destinations) {
		return nil, fmt.Errorf("distance matrix: %w: short response for %d destinations", ErrProviderUnavailable, len(destinations))
	}

	out := make([]models.DistanceElement, len(destinations))
	for i := range destinations {
		el := resp.Rows[0].Elements[i]
		out[i] = models.DistanceElement{Status: el.Status}
		if el.Distance != nil {
			out[i].Distance = el.Distance.Text
		}
		if el.Duration != nil {
			out[i].Duration = el.Duration.Text
		}
	}
	return out, nil
}

// get performs a GET against the provider and decodes the JSON envelope.
func (c *Client) get(ctx context.Context, endpoint models.ProviderEndpoint, category, path string, params url.Values, out envelope, okStatuses ...string) (err error) {
	if c.apiKey == "" {
		return fmt.Errorf("%w: no API key", ErrProviderConfig)
	}
	if c.limiter != nil {
		if err := c.limiter.Allow(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
	}

	start := c.now()
	defer func() { c.record(ctx, endpoint, category, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: http status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}

	status, message := out.status()
	for _, ok := range okStatuses {
		if status == ok {
			return nil
		}
	}
	kind := ErrProviderUnavailable
	if status == "REQUEST_DENIED" {
		kind = ErrProviderConfig
	}
	if message != "" {
		return fmt.Errorf("%w: status %s: %s", kind, status, message)
	}
	return fmt.Errorf("%w: status %s", kind, status)
}

func (c *Client) record(ctx context.Context, endpoint models.ProviderEndpoint, category string, start time.Time, err error) {
	if len(c.recorders) == 0 {
		return
	}
	call := models.ProviderCall{
		Endpoint:  endpoint,
		Category:  category,
		Status:    "ok",
		LatencyMs: c.now().Sub(start).Milliseconds(),
		CreatedAt: start.UTC(),
	}
	if err != nil {
		call.Status = "error"
	}
	for _, r := range c.recorders {
		if rerr := r.RecordCall(context.WithoutCancel(ctx), call); rerr != nil {
			c.logger.Warn("record provider call", zap.Error(rerr))
		}
	}
}

func formatLatLng(p models.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// redact strips the API key from transport errors, which embed the URL.
func redact(err error, key string) string {
	return strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
}

// Package selection tracks the currently selected property and makes sure
// only the latest selection's amenities become visible.
package selection

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/models"
)

// DefaultDebounce is the quiet period before a selection is fetched.
const DefaultDebounce = 300 * time.Millisecond

// FetchFunc loads the amenities response for one property.
type FetchFunc func(ctx context.Context, entityID string) (*models.NearbyResponse, error)

// State is the visible result of the latest selection.
type State struct {
	EntityID   string
	Response   *models.NearbyResponse
	Err        error
	Loading    bool
	Generation uint64
}

// Selection runs one fetch per selection and discards results that arrive
// after a newer selection was made.
type Selection struct {
	fetch    FetchFunc
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	state   State
	changed chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Selection.
type Option func(*Selection)

// WithDebounce sets the quiet period. Zero fetches immediately.
func WithDebounce(d time.Duration) Option {
	return func(s *Selection) { s.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selection) { s.logger = l }
}

// New creates a Selection using fetch.
func New(fetch FetchFunc, opts ...Option) *Selection {
	s := &Selection{
		fetch:    fetch,
		debounce: DefaultDebounce,
		changed:  make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.debounce < 0 {
		s.debounce = 0
	}
	s.logger = logger.OrNop(s.logger)
	return s
}

// Select makes entityID current, cancels the previous fetch and starts a
// new one. It returns the generation of the new selection.
func (s *Selection) Select(ctx context.Context, entityID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.publish(State{EntityID: entityID, Loading: true, Generation: gen})

	s.wg.Add(1)
	go s.run(fctx, gen, entityID)
	return gen
}

func (s *Selection) run(ctx context.Context, gen uint64, entityID string) {
	defer s.wg.Done()

	var (
		resp *models.NearbyResponse
		err  error
	)
	if s.debounce > 0 {
		t := time.NewTimer(s.debounce)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			err = ctx.Err()
		}
	}
	if err == nil {
		resp, err = s.fetch(ctx, entityID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("discarding stale selection result",
			zap.String("entity_id", entityID),
			zap.Uint64("generation", gen),
			zap.Uint64("current", s.gen))
		return
	}
	s.publish(State{EntityID: entityID, Response: resp, Err: err, Generation: gen})
}

// publish replaces the visible state and wakes waiters. Callers hold mu.
func (s *Selection) publish(st State) {
	s.state = st
	close(s.changed)
	s.changed = make(chan struct{})
}

// State returns the visible state.
func (s *Selection) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Changed returns a channel that is closed on the next state change.
func (s *Selection) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Wait blocks until the current selection has finished loading.
func (s *Selection) Wait(ctx context.Context) (State, error) {
	for {
		s.mu.Lock()
		st, ch := s.state, s.changed
		s.mu.Unlock()
		if !st.Loading {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close cancels the in-flight fetch and waits for all fetches to return.
func (s *Selection) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

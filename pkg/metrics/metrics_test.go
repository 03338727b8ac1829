package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestfind/nestfind/pkg/models"
)

func TestCacheEvents(t *testing.T) {
	m := New()
	m.Hit()
	m.Hit()
	m.Miss()
	m.Eviction()
	m.Expire()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("eviction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvents.WithLabelValues("expiration")))
}

func TestRecordProviderCall(t *testing.T) {
	m := New()
	_ = m.RecordCall(context.Background(), models.ProviderCall{Endpoint: models.EndpointNearbySearch, Status: "ok", LatencyMs: 120})
	_ = m.RecordCall(context.Background(), models.ProviderCall{Endpoint: models.EndpointNearbySearch, Status: "error", LatencyMs: 5})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("nearbysearch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("nearbysearch", "error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("nearby-amenities", http.StatusOK)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "nestfind_http_requests_total"), "missing request counter")
	assert.True(t, strings.Contains(body, `route="nearby-amenities"`), "missing route label")
}

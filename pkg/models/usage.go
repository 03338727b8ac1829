package models

import "time"

// ProviderEndpoint names an outbound places-provider API.
type ProviderEndpoint string

const (
	EndpointNearbySearch   ProviderEndpoint = "nearbysearch"
	EndpointPlaceDetails   ProviderEndpoint = "details"
	EndpointDistanceMatrix ProviderEndpoint = "distancematrix"
)

// ProviderCall records a single outbound provider request.
type ProviderCall struct {
	ID        int64            `json:"id"`
	Endpoint  ProviderEndpoint `json:"endpoint"`
	Category  string           `json:"category,omitempty"`
	Status    string           `json:"status"`
	LatencyMs int64            `json:"latency_ms"`
	CreatedAt time.Time        `json:"created_at"`
}

// UsageSummary aggregates provider calls per endpoint.
type UsageSummary struct {
	Endpoint   ProviderEndpoint `json:"endpoint"`
	Calls      int              `json:"calls"`
	Errors     int              `json:"errors"`
	AvgLatency float64          `json:"avg_latency_ms"`
}

// QuotaStatus shows today's provider usage against the daily cap.
type QuotaStatus struct {
	Limit     int64 `json:"limit"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

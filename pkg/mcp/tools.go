package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nestfind/nestfind/pkg/amenity"
	"github.com/nestfind/nestfind/pkg/models"
)

// Tool argument structs.

type nearbyArgs struct {
	PropertyID string   `json:"property_id"`
	Categories []string `json:"categories"`
	Radius     int      `json:"radius"`
	Limit      int      `json:"limit"`
	Distance   *bool    `json:"distance"`
}

type searchArgs struct {
	City         string `json:"city"`
	MinPrice     int64  `json:"min_price"`
	MaxPrice     int64  `json:"max_price"`
	PropertyType string `json:"property_type"`
	MinBedrooms  int    `json:"min_bedrooms"`
	SortBy       string `json:"sort_by"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"nearby_amenities":  handleNearbyAmenities,
	"search_properties": handleSearchProperties,
	"cache_stats":       handleCacheStats,
	"quota_status":      handleQuotaStatus,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "nearby_amenities",
		Description: "List amenities (schools, hospitals, parks, ...) near a property, optionally with travel distance.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"property_id", "categories"},
			"properties": map[string]any{
				"property_id": map[string]any{
					"type":        "string",
					"description": "24-character hex property id",
				},
				"categories": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Place types such as school, hospital, park",
				},
				"radius": map[string]any{
					"type":        "integer",
					"description": "Search radius in meters (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum results per category (optional)",
				},
				"distance": map[string]any{
					"type":        "boolean",
					"description": "Include travel distance and duration (optional)",
				},
			},
		},
	},
	{
		Name:        "search_properties",
		Description: "Search listed properties by city, price, type and bedrooms.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city":          map[string]any{"type": "string", "description": "Exact city name (optional)"},
				"min_price":     map[string]any{"type": "integer", "description": "Minimum price (optional)"},
				"max_price":     map[string]any{"type": "integer", "description": "Maximum price (optional)"},
				"property_type": map[string]any{"type": "string", "description": "apartment, flat, ... (optional)"},
				"min_bedrooms":  map[string]any{"type": "integer", "description": "Minimum bedrooms (optional)"},
				"sort_by":       map[string]any{"type": "string", "enum": []string{"price", "listedDate"}},
				"page":          map[string]any{"type": "integer", "description": "Page number, from 1 (optional)"},
				"limit":         map[string]any{"type": "integer", "description": "Page size (optional)"},
			},
		},
	},
	{
		Name:        "cache_stats",
		Description: "Show amenity cache statistics (entries, hits, misses, evictions, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "quota_status",
		Description: "Show today's places provider calls against the daily quota.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleNearbyAmenities(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args nearbyArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	if args.PropertyID == "" {
		return errorResult("property_id is required")
	}

	req := amenity.Request{
		EntityID:         strings.TrimSpace(args.PropertyID),
		Categories:       args.Categories,
		RadiusMeters:     args.Radius,
		PerCategoryLimit: args.Limit,
		WithDistance:     s.defaults.WithDistance,
	}
	if req.RadiusMeters == 0 {
		req.RadiusMeters = s.defaults.Radius
	}
	if req.PerCategoryLimit == 0 {
		req.PerCategoryLimit = s.defaults.Limit
	}
	if args.Distance != nil {
		req.WithDistance = *args.Distance
	}

	resp, err := s.amenities.Handle(ctx, req)
	if err != nil {
		return errorResult("Error fetching amenities: " + err.Error())
	}
	return textResult(formatNearby(resp))
}

func handleSearchProperties(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args searchArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}
	res, err := s.properties.Search(ctx, models.SearchFilters{
		City:         args.City,
		MinPrice:     args.MinPrice,
		MaxPrice:     args.MaxPrice,
		PropertyType: args.PropertyType,
		MinBedrooms:  args.MinBedrooms,
		SortBy:       models.SortField(args.SortBy),
		Page:         args.Page,
		Limit:        args.Limit,
	})
	if err != nil {
		return errorResult("Error searching properties: " + err.Error())
	}
	return textResult(formatSearch(res))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.cache.Stats()
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleQuotaStatus(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.quota == nil {
		return textResult("Quota enforcement is not configured.")
	}
	st, err := s.quota.Status(ctx)
	if err != nil {
		return errorResult("Error fetching quota status: " + err.Error())
	}
	return textResult(formatQuota(st))
}

package mcp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nestfind/nestfind/pkg/models"
)

// formatNearby formats an amenity response as one table per category.
func formatNearby(resp *models.NearbyResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\nWithin %s m of %.4f,%.4f\n",
		resp.Property.Title, resp.Property.ID,
		humanize.Comma(int64(resp.SearchRadius)),
		resp.Property.Coordinates.Lat, resp.Property.Coordinates.Lng)

	categories := make([]string, 0, len(resp.Amenities))
	for c := range resp.Amenities {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	for _, c := range categories {
		recs := resp.Amenities[c]
		fmt.Fprintf(&b, "\n%s (%d)\n", c, len(recs))
		if len(recs) == 0 {
			b.WriteString("  none found\n")
			continue
		}
		for _, r := range recs {
			rating := "-"
			if r.Rating != nil {
				rating = fmt.Sprintf("%.1f", *r.Rating)
			}
			fmt.Fprintf(&b, "  %-35s %4s %10s %10s  %s\n",
				truncate(r.Name, 35), rating, r.Distance, r.Duration, r.Address)
		}
	}
	return b.String()
}

// formatSearch formats a property search page as a text table.
func formatSearch(res models.SearchResult) string {
	if len(res.Results) == 0 {
		return "No properties found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-30s %-12s %-10s %4s %14s\n",
		"ID", "Title", "City", "Type", "Beds", "Price")
	b.WriteString(strings.Repeat("-", 100) + "\n")
	for _, p := range res.Results {
		fmt.Fprintf(&b, "%-24s %-30s %-12s %-10s %4d %14s\n",
			p.ID, truncate(p.Title, 30), p.Location.City, p.PropertyType, p.Bedrooms, humanize.Comma(p.Price))
	}
	fmt.Fprintf(&b, "\nPage %d, %d of %d results\n", res.Page, len(res.Results), res.Total)
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Amenity Cache\n"+
		"  Entries:     %d\n"+
		"  Hits:        %d\n"+
		"  Misses:      %d\n"+
		"  Evictions:   %d\n"+
		"  Expirations: %d\n"+
		"  Hit Rate:    %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, stats.Evictions, stats.Expirations, hitRate)
}

// formatQuota formats the daily quota as text.
func formatQuota(st models.QuotaStatus) string {
	pct := float64(0)
	if st.Limit > 0 {
		pct = float64(st.Used) / float64(st.Limit) * 100
	}
	return fmt.Sprintf("Provider Quota (today, UTC)\n"+
		"  Limit:     %s\n"+
		"  Used:      %s (%.1f%%)\n"+
		"  Remaining: %s\n",
		humanize.Comma(st.Limit), humanize.Comma(st.Used), pct, humanize.Comma(st.Remaining))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

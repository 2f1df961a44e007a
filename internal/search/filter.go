package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"
)

// FilterParams describes a composable full-text search. Every filter is
// optional and becomes one predicate ANDed into the Meilisearch filter
// expression.
type FilterParams struct {
	Query       string
	CountryCode string
	City        string
	Types       []string
	Tags        []string
	MinPrice    *float64
	MaxPrice    *float64
	Featured    *bool
	SortBy      string
	Limit       int64
	Offset      int64
}

// FilterResult is the search response envelope: hits plus the per-type
// counts and the tag cloud derived from facet distributions.
type FilterResult struct {
	Hits             []ListingDocument `json:"hits"`
	TotalHits        int64             `json:"total_hits"`
	Limit            int64             `json:"limit"`
	Offset           int64             `json:"offset"`
	TypeCounts       map[string]int64  `json:"type_counts"`
	TagCloud         map[string]int64  `json:"tag_cloud"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// FilterSearch performs the search with filters and facets
func (s *SearchClient) FilterSearch(params FilterParams) (*FilterResult, error) {
	var filters []string

	if params.CountryCode != "" {
		filters = append(filters, fmt.Sprintf("country_code = '%s'", escape(params.CountryCode)))
	}
	if params.City != "" {
		filters = append(filters, fmt.Sprintf("city = '%s'", escape(params.City)))
	}

	// Type filter: any of the requested types
	if len(params.Types) > 0 {
		typeFilters := make([]string, len(params.Types))
		for i, t := range params.Types {
			typeFilters[i] = fmt.Sprintf("listing_type = '%s'", escape(t))
		}
		filters = append(filters, fmt.Sprintf("(%s)", strings.Join(typeFilters, " OR ")))
	}

	// Tag filter: listing must carry every requested tag
	for _, tag := range params.Tags {
		filters = append(filters, fmt.Sprintf("tags = '%s'", escape(tag)))
	}

	// Price range filter
	if params.MinPrice != nil {
		filters = append(filters, fmt.Sprintf("price >= %g", *params.MinPrice))
	}
	if params.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("price <= %g", *params.MaxPrice))
	}

	if params.Featured != nil {
		filters = append(filters, fmt.Sprintf("featured = %t", *params.Featured))
	}

	// Default limit
	if params.Limit == 0 {
		params.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  params.Limit,
		Offset: params.Offset,
		Facets: []string{"listing_type", "tags"},
	}

	if len(filters) > 0 {
		searchReq.Filter = strings.Join(filters, " AND ")
	}

	switch params.SortBy {
	case "price_asc":
		searchReq.Sort = []string{"price:asc"}
	case "price_desc":
		searchReq.Sort = []string{"price:desc"}
	case "newest":
		searchReq.Sort = []string{"created_at:desc"}
	}

	searchRes, err := s.client.Index(s.index).Search(params.Query, searchReq)
	if err != nil {
		return nil, err
	}

	// Convert hits to documents
	hits := make([]ListingDocument, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		hitJSON, err := json.Marshal(hit)
		if err != nil {
			continue
		}

		var doc ListingDocument
		if err := json.Unmarshal(hitJSON, &doc); err != nil {
			continue
		}

		hits = append(hits, doc)
	}

	result := &FilterResult{
		Hits:             hits,
		TotalHits:        searchRes.EstimatedTotalHits,
		Limit:            params.Limit,
		Offset:           params.Offset,
		TypeCounts:       facetCounts(searchRes.FacetDistribution, "listing_type"),
		TagCloud:         facetCounts(searchRes.FacetDistribution, "tags"),
		ProcessingTimeMs: searchRes.ProcessingTimeMs,
	}

	return result, nil
}

// facetCounts extracts one facet's distribution from the response
func facetCounts(distribution interface{}, facet string) map[string]int64 {
	counts := make(map[string]int64)

	dist, ok := distribution.(map[string]interface{})
	if !ok {
		return counts
	}
	values, ok := dist[facet].(map[string]interface{})
	if !ok {
		return counts
	}

	for value, count := range values {
		if n, ok := count.(float64); ok {
			counts[value] = int64(n)
		}
	}
	return counts
}

// escape guards the quoted filter literals
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

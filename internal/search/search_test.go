package search

import (
	"testing"
	"time"

	"classifieds-portal/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDocumentFromListing(t *testing.T) {
	price := 150.0
	l := &models.Listing{
		ID:          "abc123",
		CountryCode: "fr",
		Title:       "Vintage armchair",
		Description: "<p>Great <b>condition</b>, pickup only</p>",
		City:        "Lyon",
		Price:       &price,
		Currency:    "EUR",
		ListingType: models.ListingTypeSell,
		Tags:        "Furniture, vintage , ,chair",
		Featured:    true,
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	doc := DocumentFromListing(l)

	assert.Equal(t, "abc123", doc.ID)
	assert.Equal(t, "Great condition, pickup only", doc.Description)
	assert.Equal(t, []string{"furniture", "vintage", "chair"}, doc.Tags)
	assert.Equal(t, l.CreatedAt.Unix(), doc.CreatedAt)
	assert.True(t, doc.Featured)
}

func TestDocumentFromListingNoTags(t *testing.T) {
	l := &models.Listing{ID: "x", Tags: ""}
	doc := DocumentFromListing(l)
	assert.Nil(t, doc.Tags)
}

func TestFacetCounts(t *testing.T) {
	distribution := map[string]interface{}{
		"listing_type": map[string]interface{}{
			"sell": float64(12),
			"rent": float64(3),
		},
	}

	counts := facetCounts(distribution, "listing_type")
	assert.Equal(t, map[string]int64{"sell": 12, "rent": 3}, counts)

	// Missing facet or malformed distribution yields an empty map
	assert.Empty(t, facetCounts(distribution, "tags"))
	assert.Empty(t, facetCounts(nil, "listing_type"))
}

package search

import (
	"strings"

	"classifieds-portal/internal/models"
	"classifieds-portal/internal/sanitize"

	"github.com/meilisearch/meilisearch-go"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "listings",
	}
}

// ListingDocument is the shape indexed in Meilisearch. Descriptions are
// stripped to plain text and tags become a real array so they can be
// faceted.
type ListingDocument struct {
	ID          string   `json:"id"`
	CountryCode string   `json:"country_code"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	City        string   `json:"city,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	ListingType string   `json:"listing_type"`
	Tags        []string `json:"tags,omitempty"`
	Featured    bool     `json:"featured"`
	CreatedAt   int64    `json:"created_at"`
}

// DocumentFromListing converts a listing row to its search document
func DocumentFromListing(l *models.Listing) ListingDocument {
	var tags []string
	for _, tag := range strings.Split(l.Tags, ",") {
		tag = strings.TrimSpace(strings.ToLower(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	return ListingDocument{
		ID:          l.ID,
		CountryCode: l.CountryCode,
		Title:       l.Title,
		Description: sanitize.StripHTML(l.Description),
		City:        l.City,
		Price:       l.Price,
		Currency:    l.Currency,
		ListingType: l.ListingType,
		Tags:        tags,
		Featured:    l.Featured,
		CreatedAt:   l.CreatedAt.Unix(),
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"city",
		"tags",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"country_code",
		"listing_type",
		"price",
		"city",
		"tags",
		"featured",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"created_at",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexListing indexes a single listing
func (s *SearchClient) IndexListing(l *models.Listing) error {
	_, err := s.client.Index(s.index).AddDocuments([]ListingDocument{DocumentFromListing(l)})
	return err
}

// IndexListings indexes multiple listings
func (s *SearchClient) IndexListings(listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	docs := make([]ListingDocument, 0, len(listings))
	for i := range listings {
		docs = append(docs, DocumentFromListing(&listings[i]))
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

// DeleteListing removes a listing from the index
func (s *SearchClient) DeleteListing(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

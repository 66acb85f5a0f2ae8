// Package retrieval provides embedding-based document retrieval for the
// assistant's RAG flow.
package retrieval

import (
	"context"
	"fmt"
)

// Document is one retrievable unit of text with optional metadata.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score,omitempty"`
}

// Collection is a named, queryable document set. One capability interface
// with concrete implementations per domain; implementations own both the
// write and read paths.
type Collection interface {
	// Update adds or replaces documents, keyed by Document.ID.
	Update(ctx context.Context, docs []Document) error

	// Query returns the k most similar documents for the query text,
	// best first. An empty or missing collection yields an empty slice,
	// not an error.
	Query(ctx context.Context, query string, k int) ([]Document, error)

	// Name is the stable collection identifier.
	Name() string
}

// DocumentCollection holds uploaded financial documents (reports, filings,
// news), optionally scoped to one chat.
type DocumentCollection struct {
	index *VectorIndex
	name  string
}

// NewDocumentCollection creates the financial-documents collection. A
// non-empty chatID scopes the collection to that conversation.
func NewDocumentCollection(index *VectorIndex, chatID string) *DocumentCollection {
	name := "financial_documents_collection"
	if chatID != "" {
		name = fmt.Sprintf("%s_%s", name, chatID)
	}
	return &DocumentCollection{index: index, name: name}
}

func (c *DocumentCollection) Update(ctx context.Context, docs []Document) error {
	return c.index.Upsert(ctx, c.name, docs)
}

func (c *DocumentCollection) Query(ctx context.Context, query string, k int) ([]Document, error) {
	return c.index.Search(ctx, c.name, query, k)
}

func (c *DocumentCollection) Name() string {
	return c.name
}

// ReportCollection holds generated market summary reports so the assistant
// can retrieve recent market context alongside uploaded documents.
type ReportCollection struct {
	index *VectorIndex
	name  string
}

// NewReportCollection creates the market-data report collection.
func NewReportCollection(index *VectorIndex) *ReportCollection {
	return &ReportCollection{index: index, name: "market_data_collection"}
}

func (c *ReportCollection) Update(ctx context.Context, docs []Document) error {
	return c.index.Upsert(ctx, c.name, docs)
}

func (c *ReportCollection) Query(ctx context.Context, query string, k int) ([]Document, error) {
	return c.index.Search(ctx, c.name, query, k)
}

func (c *ReportCollection) Name() string {
	return c.name
}

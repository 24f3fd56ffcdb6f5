package cache

import (
	"context"

	"github.com/emrgen/propagate/internal/model"
)

// DocumentCache is a cache for documents.
type DocumentCache interface {
	// GetDocument gets a document from the cache, nil on a miss.
	GetDocument(ctx context.Context, path string) (*model.Document, error)
	// SetDocument sets a document in the cache.
	SetDocument(ctx context.Context, doc *model.Document) error
	// DeleteDocument deletes documents from the cache.
	DeleteDocument(ctx context.Context, paths ...string) error
}

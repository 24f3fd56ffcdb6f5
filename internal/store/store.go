package store

import (
	"context"

	"github.com/emrgen/propagate/internal/model"
)

type Store interface {
	DocumentStore
	BackLinkStore
	// Transaction runs f inside a transaction. f must only use the tx store it is given.
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type DocumentStore interface {
	// GetDocument retrieves a document by path, ErrDocumentNotFound if absent.
	GetDocument(ctx context.Context, path string) (*model.Document, error)
	// SetDocument creates or replaces a document.
	SetDocument(ctx context.Context, doc *model.Document) error
	// MergeFields sets the given fields on an existing document, other fields are untouched.
	MergeFields(ctx context.Context, path string, fields map[string]any) error
	// RemoveArrayElements removes the elements of an array field matching match and
	// returns how many were removed.
	RemoveArrayElements(ctx context.Context, path string, field string, match func(any) bool) (int, error)
	// DeleteDocument deletes a document by path. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, path string) error
	// ListDocuments retrieves the documents of a collection.
	ListDocuments(ctx context.Context, collection string) ([]*model.Document, error)
}

type BackLinkStore interface {
	// UpsertBackLink creates a back link or updates its tracked fields.
	UpsertBackLink(ctx context.Context, link *model.BackLink) error
	// DeleteBackLink deletes one back link. Deleting a missing back link is not an error.
	DeleteBackLink(ctx context.Context, targetPath, referrerPath, fieldName string) error
	// DeleteBackLinksTo deletes every back link pointing at targetPath.
	DeleteBackLinksTo(ctx context.Context, targetPath string) error
	// ListBackLinksTo lists the back links pointing at targetPath.
	ListBackLinksTo(ctx context.Context, targetPath string) ([]*model.BackLink, error)
	// ListBackLinksFrom lists the back links created by referrerPath.
	ListBackLinksFrom(ctx context.Context, referrerPath string) ([]*model.BackLink, error)
	// ListBackLinks pages through all back links in a stable order.
	ListBackLinks(ctx context.Context, offset, limit int) ([]*model.BackLink, error)
}

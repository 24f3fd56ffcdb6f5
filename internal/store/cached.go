package store

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/propagate/internal/cache"
	"github.com/emrgen/propagate/internal/model"
	"github.com/sirupsen/logrus"
)

var _ Store = (*CachedStore)(nil)

// CachedStore serves document reads from a cache and invalidates it on every write.
// Back links are never cached.
type CachedStore struct {
	Store
	cache cache.DocumentCache
	// touched collects the paths written inside a transaction, nil outside of one.
	touched mapset.Set[string]
}

func NewCachedStore(store Store, cache cache.DocumentCache) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

func (c *CachedStore) GetDocument(ctx context.Context, path string) (*model.Document, error) {
	// reads inside a transaction must see the transaction's own writes
	if c.touched != nil {
		return c.Store.GetDocument(ctx, path)
	}

	doc, err := c.cache.GetDocument(ctx, path)
	if err != nil {
		logrus.Warnf("document cache read failed for %s: %v", path, err)
	}
	if doc != nil {
		return doc, nil
	}

	doc, err = c.Store.GetDocument(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetDocument(ctx, doc); err != nil {
		logrus.Warnf("document cache write failed for %s: %v", path, err)
	}

	return doc, nil
}

func (c *CachedStore) SetDocument(ctx context.Context, doc *model.Document) error {
	if err := c.Store.SetDocument(ctx, doc); err != nil {
		return err
	}
	c.invalidate(ctx, doc.Path)
	return nil
}

func (c *CachedStore) MergeFields(ctx context.Context, path string, fields map[string]any) error {
	if err := c.Store.MergeFields(ctx, path, fields); err != nil {
		return err
	}
	c.invalidate(ctx, path)
	return nil
}

func (c *CachedStore) RemoveArrayElements(ctx context.Context, path string, field string, match func(any) bool) (int, error) {
	removed, err := c.Store.RemoveArrayElements(ctx, path, field, match)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.invalidate(ctx, path)
	}
	return removed, nil
}

func (c *CachedStore) DeleteDocument(ctx context.Context, path string) error {
	if err := c.Store.DeleteDocument(ctx, path); err != nil {
		return err
	}
	c.invalidate(ctx, path)
	return nil
}

// Transaction defers cache invalidation until the transaction commits.
func (c *CachedStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	touched := mapset.NewSet[string]()
	err := c.Store.Transaction(ctx, func(tx Store) error {
		return f(&CachedStore{Store: tx, cache: c.cache, touched: touched})
	})

	// a rolled back transaction may still have been read by someone, drop it either way
	if paths := touched.ToSlice(); len(paths) > 0 {
		if err := c.cache.DeleteDocument(ctx, paths...); err != nil {
			logrus.Warnf("document cache invalidation failed: %v", err)
		}
	}

	return err
}

func (c *CachedStore) invalidate(ctx context.Context, path string) {
	if c.touched != nil {
		c.touched.Add(path)
		return
	}

	if err := c.cache.DeleteDocument(ctx, path); err != nil {
		logrus.Warnf("document cache invalidation failed for %s: %v", path, err)
	}
}

package store

import (
	"context"
	"errors"

	"github.com/emrgen/propagate/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
	// lock makes document reads take a row lock, set for stores bound to a transaction
	lock bool
}

func (g *GormStore) GetDocument(ctx context.Context, path string) (*model.Document, error) {
	var doc model.Document
	q := g.db.WithContext(ctx)
	if g.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("path = ?", path).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	return &doc, nil
}

func (g *GormStore) SetDocument(ctx context.Context, doc *model.Document) error {
	if doc.Collection == "" {
		doc.Collection = model.CollectionOf(doc.Path)
	}

	return g.db.WithContext(ctx).Save(doc).Error
}

// MergeFields reads, merges and writes the document data in one transaction.
func (g *GormStore) MergeFields(ctx context.Context, path string, fields map[string]any) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := (&GormStore{db: tx, lock: true}).GetDocument(ctx, path)
		if err != nil {
			return err
		}

		current, err := doc.Fields()
		if err != nil {
			return err
		}

		for k, v := range fields {
			current[k] = v
		}

		if err := doc.SetFields(current); err != nil {
			return err
		}
		doc.Version = doc.Version + 1

		return tx.Save(doc).Error
	})
}

func (g *GormStore) RemoveArrayElements(ctx context.Context, path string, field string, match func(any) bool) (int, error) {
	removed := 0
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := (&GormStore{db: tx, lock: true}).GetDocument(ctx, path)
		if err != nil {
			return err
		}

		current, err := doc.Fields()
		if err != nil {
			return err
		}

		value, ok := current[field]
		if !ok || value == nil {
			return nil
		}

		items, ok := value.([]any)
		if !ok {
			return ErrNotAnArray
		}

		kept := make([]any, 0, len(items))
		for _, item := range items {
			if match(item) {
				removed++
				continue
			}
			kept = append(kept, item)
		}

		if removed == 0 {
			return nil
		}

		current[field] = kept
		if err := doc.SetFields(current); err != nil {
			return err
		}
		doc.Version = doc.Version + 1

		return tx.Save(doc).Error
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func (g *GormStore) DeleteDocument(ctx context.Context, path string) error {
	return g.db.WithContext(ctx).Where("path = ?", path).Delete(&model.Document{}).Error
}

func (g *GormStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	var docs []*model.Document
	err := g.db.WithContext(ctx).Where("collection = ?", collection).Order("path").Find(&docs).Error
	return docs, err
}

func (g *GormStore) UpsertBackLink(ctx context.Context, link *model.BackLink) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "target_path"},
			{Name: "referrer_path"},
			{Name: "field_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"tracked_fields", "updated_at"}),
	}).Create(link).Error
}

func (g *GormStore) DeleteBackLink(ctx context.Context, targetPath, referrerPath, fieldName string) error {
	res := g.db.WithContext(ctx).
		Where("target_path = ? AND referrer_path = ? AND field_name = ?", targetPath, referrerPath, fieldName).
		Delete(&model.BackLink{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		logrus.Debugf("back link %s <- %s.%s already removed", targetPath, referrerPath, fieldName)
	}

	return nil
}

func (g *GormStore) DeleteBackLinksTo(ctx context.Context, targetPath string) error {
	return g.db.WithContext(ctx).Where("target_path = ?", targetPath).Delete(&model.BackLink{}).Error
}

func (g *GormStore) ListBackLinksTo(ctx context.Context, targetPath string) ([]*model.BackLink, error) {
	var links []*model.BackLink
	err := g.db.WithContext(ctx).Where("target_path = ?", targetPath).Order("referrer_path, field_name").Find(&links).Error
	return links, err
}

func (g *GormStore) ListBackLinksFrom(ctx context.Context, referrerPath string) ([]*model.BackLink, error) {
	var links []*model.BackLink
	err := g.db.WithContext(ctx).Where("referrer_path = ?", referrerPath).Order("target_path, field_name").Find(&links).Error
	return links, err
}

func (g *GormStore) ListBackLinks(ctx context.Context, offset, limit int) ([]*model.BackLink, error) {
	var links []*model.BackLink
	err := g.db.WithContext(ctx).
		Order("target_path, referrer_path, field_name").
		Offset(offset).
		Limit(limit).
		Find(&links).Error
	return links, err
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx, lock: true})
	})
}

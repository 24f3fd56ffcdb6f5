package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewDocumentService creates a new DocumentService. Writes are checked against the link
// fields schema configures for the document's collection.
func NewDocumentService(store store.Store, schema *link.Schema, trigger Trigger) *DocumentService {
	return &DocumentService{
		store:   store,
		schema:  schema,
		trigger: trigger,
	}
}

// DocumentService is the write path for documents. Every committed write is published
// as a change to the trigger.
type DocumentService struct {
	store   store.Store
	schema  *link.Schema
	trigger Trigger
}

// validateLinks rejects a document whose configured link fields do not decode.
func (d *DocumentService) validateLinks(doc *model.Document) error {
	for _, config := range d.schema.LinkFields(doc.Collection) {
		if _, err := link.DecodeDocumentField(doc, config.FieldName); err != nil {
			return fmt.Errorf("%s.%s: %w", doc.Path, config.FieldName, err)
		}
	}
	return nil
}

// CreateDocument creates a new document.
func (d *DocumentService) CreateDocument(ctx context.Context, path string, fields map[string]any) (*model.Document, error) {
	doc, err := model.NewDocument(path, fields)
	if err != nil {
		return nil, err
	}

	err = d.store.Transaction(ctx, func(tx store.Store) error {
		_, err := tx.GetDocument(ctx, path)
		if err == nil {
			return ErrDocumentExists
		}
		if !errors.Is(err, store.ErrDocumentNotFound) {
			return err
		}

		if err := d.validateLinks(doc); err != nil {
			return err
		}
		if err := tx.SetDocument(ctx, doc); err != nil {
			return err
		}
		doc, err = tx.GetDocument(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	return doc, d.publish(ctx, model.TriggerCreate, path, nil, doc)
}

// UpdateDocument sets the given fields on an existing document. A null value removes
// the field. An update that changes nothing publishes nothing.
func (d *DocumentService) UpdateDocument(ctx context.Context, path string, fields map[string]any) (*model.Document, error) {
	return d.write(ctx, path, func(current map[string]any) map[string]any {
		for name, value := range fields {
			if value == nil {
				delete(current, name)
				continue
			}
			current[name] = value
		}
		return current
	})
}

// ReplaceDocument replaces all fields of a document, creating it when it is missing.
func (d *DocumentService) ReplaceDocument(ctx context.Context, path string, fields map[string]any) (*model.Document, error) {
	doc, err := d.write(ctx, path, func(map[string]any) map[string]any {
		return fields
	})
	if errors.Is(err, store.ErrDocumentNotFound) {
		return d.CreateDocument(ctx, path, fields)
	}
	return doc, err
}

// write applies update to the fields of the document at path in a transaction and
// publishes the change once committed.
func (d *DocumentService) write(ctx context.Context, path string, update func(map[string]any) map[string]any) (*model.Document, error) {
	if err := model.ValidatePath(path); err != nil {
		return nil, err
	}

	var before, after *model.Document
	err := d.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		before, err = tx.GetDocument(ctx, path)
		if err != nil {
			return err
		}

		current, err := before.Fields()
		if err != nil {
			return err
		}
		original, err := before.Fields()
		if err != nil {
			return err
		}

		next := update(current)
		if reflect.DeepEqual(original, normalize(next)) {
			after = before
			return nil
		}

		after = before.Clone()
		if err := after.SetFields(next); err != nil {
			return err
		}
		after.Version = before.Version + 1

		if err := d.validateLinks(after); err != nil {
			return err
		}
		if err := tx.SetDocument(ctx, after); err != nil {
			return err
		}
		after, err = tx.GetDocument(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	if after == before {
		logrus.Debugf("update of %s changed nothing", path)
		return after, nil
	}

	return after, d.publish(ctx, model.TriggerUpdate, path, before, after)
}

// DeleteDocument deletes a document.
func (d *DocumentService) DeleteDocument(ctx context.Context, path string) error {
	if err := model.ValidatePath(path); err != nil {
		return err
	}

	var before *model.Document
	err := d.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		before, err = tx.GetDocument(ctx, path)
		if err != nil {
			return err
		}
		return tx.DeleteDocument(ctx, path)
	})
	if err != nil {
		return err
	}

	return d.publish(ctx, model.TriggerDelete, path, before, nil)
}

// GetDocument retrieves a document.
func (d *DocumentService) GetDocument(ctx context.Context, path string) (*model.Document, error) {
	if err := model.ValidatePath(path); err != nil {
		return nil, err
	}
	return d.store.GetDocument(ctx, path)
}

// ListDocuments lists the documents of a collection.
func (d *DocumentService) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	return d.store.ListDocuments(ctx, collection)
}

// ListBackLinks lists the documents holding a cached copy of path.
func (d *DocumentService) ListBackLinks(ctx context.Context, path string) ([]*model.BackLink, error) {
	if err := model.ValidatePath(path); err != nil {
		return nil, err
	}
	return d.store.ListBackLinksTo(ctx, path)
}

func (d *DocumentService) publish(ctx context.Context, trigger model.TriggerType, path string, before, after *model.Document) error {
	change := &model.Change{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Path:      path,
		Before:    before,
		After:     after,
		Timestamp: time.Now().UTC(),
	}

	if err := d.trigger.Publish(ctx, change); err != nil {
		logrus.Errorf("error publishing %s change of %s: %v", trigger, path, err)
		return err
	}

	return nil
}

// normalize gives fields the shape they have after a round trip through the store.
func normalize(fields map[string]any) map[string]any {
	out := make(map[string]any)
	if fields == nil {
		return out
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fields
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fields
	}

	return out
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/propagate"
	"github.com/emrgen/propagate/internal/store"
	"github.com/emrgen/propagate/internal/tester"
	"github.com/stretchr/testify/require"
)

// recordingTrigger remembers the published changes and forwards them to next, if set.
type recordingTrigger struct {
	mu      sync.Mutex
	changes []*model.Change
	next    Trigger
}

func (r *recordingTrigger) Publish(ctx context.Context, change *model.Change) error {
	r.mu.Lock()
	r.changes = append(r.changes, change)
	r.mu.Unlock()

	if r.next == nil {
		return nil
	}
	return r.next.Publish(ctx, change)
}

func (r *recordingTrigger) Changes() []*model.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Change(nil), r.changes...)
}

var orderSchema = &link.Schema{Tables: []link.TableConfig{
	{
		Collection: "orders",
		LinkFields: []link.FieldConfig{{FieldName: "products", TrackedFields: []string{"name", "price"}}},
	},
}}

func newTestService(t *testing.T) (*DocumentService, *recordingTrigger, store.Store) {
	db := store.NewGormStore(tester.TestDB(t))
	engine := propagate.NewEngine(db, propagate.WithConcurrency(4))
	trigger := &recordingTrigger{next: NewDirectTrigger(engine, orderSchema)}

	return NewDocumentService(db, orderSchema, trigger), trigger, db
}

func entriesOf(t *testing.T, doc *model.Document, field string) []link.Entry {
	entries, err := link.DecodeDocumentField(doc, field)
	require.NoError(t, err)
	return entries
}

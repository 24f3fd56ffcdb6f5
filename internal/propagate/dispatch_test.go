package propagate

import (
	"testing"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nameConfig = []link.FieldConfig{{FieldName: "links", TrackedFields: []string{"name"}}}

func TestEngine_Dispatch_Create(t *testing.T) {
	f := newFixture(t)
	f.put("products/b", map[string]any{"name": "B"})
	after := f.put("orders/a", map[string]any{
		"links": linkList(map[string]any{"docPath": "products/b", "name": "B"}),
	})

	err := f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerCreate, Path: after.Path, After: after}, nameConfig)
	require.NoError(t, err)

	assert.Zero(t, f.rec.Writes())
	assert.Empty(t, f.backLinksTo("products/b"))
}

func TestEngine_Dispatch_UpdateAddsTargetRef(t *testing.T) {
	f := newFixture(t)
	f.put("products/b", map[string]any{"name": "old"})
	f.put("products/c", map[string]any{"name": "x", "price": 3})
	f.backLink("products/b", "orders/a", "links", "name")

	before, err := model.NewDocument("orders/a", map[string]any{
		"links": linkList(map[string]any{"docPath": "products/b", "name": "old"}),
	})
	require.NoError(t, err)
	after := f.put("orders/a", map[string]any{
		"links": linkList(
			map[string]any{"docPath": "products/b", "name": "old"},
			map[string]any{"docPath": "products/c", "name": "x"},
		),
	})

	err = f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerUpdate, Path: after.Path, Before: before, After: after}, nameConfig)
	require.NoError(t, err)

	assert.Equal(t, []string{"products/c <- orders/a.links"}, f.rec.upserts)
	assert.Empty(t, f.rec.deletes)
	// the cached copy already matched the target, only the back link was written
	assert.Equal(t, 1, f.rec.Writes())

	links := f.backLinksTo("products/c")
	require.Len(t, links, 1)
	assert.Equal(t, "orders/a", links[0].ReferrerPath)
	assert.Len(t, f.backLinksTo("products/b"), 1)
}

func TestEngine_Dispatch_UpdateRemovesTargetRef(t *testing.T) {
	f := newFixture(t)
	f.put("products/b", map[string]any{"name": "B"})
	f.put("products/c", map[string]any{"name": "C"})
	f.backLink("products/b", "orders/a", "links", "name")
	f.backLink("products/c", "orders/a", "links", "name")

	before, err := model.NewDocument("orders/a", map[string]any{
		"links": linkList(
			map[string]any{"docPath": "products/b", "name": "B"},
			map[string]any{"docPath": "products/c", "name": "C"},
		),
	})
	require.NoError(t, err)
	after := f.put("orders/a", map[string]any{
		"links": linkList(map[string]any{"docPath": "products/b", "name": "B"}),
	})

	err = f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerUpdate, Path: after.Path, Before: before, After: after}, nameConfig)
	require.NoError(t, err)

	assert.Empty(t, f.rec.upserts)
	assert.Equal(t, []string{"products/c <- orders/a.links"}, f.rec.deletes)
	assert.Empty(t, f.backLinksTo("products/c"))
	assert.Len(t, f.backLinksTo("products/b"), 1)
}

func TestEngine_Dispatch_UpdateUnchangedLinks(t *testing.T) {
	f := newFixture(t)
	f.put("products/b", map[string]any{"name": "B"})
	f.backLink("products/b", "orders/a", "links", "name")

	fields := map[string]any{
		"note":  "first",
		"links": linkList(map[string]any{"docPath": "products/b", "name": "B"}),
	}
	before, err := model.NewDocument("orders/a", fields)
	require.NoError(t, err)
	fields["note"] = "second"
	after := f.put("orders/a", fields)

	err = f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerUpdate, Path: after.Path, Before: before, After: after}, nameConfig)
	require.NoError(t, err)

	assert.Zero(t, f.rec.Writes())
}

func TestEngine_Dispatch_UpdatePropagatesAndLinks(t *testing.T) {
	f := newFixture(t)
	// orders/a is both cached by invoices/i and links to products/b
	f.put("products/b", map[string]any{"name": "B"})
	f.put("invoices/i", map[string]any{
		"orders": linkList(map[string]any{"docPath": "orders/a", "total": 5.0}),
	})
	f.backLink("orders/a", "invoices/i", "orders", "total")

	before, err := model.NewDocument("orders/a", map[string]any{"total": 5})
	require.NoError(t, err)
	after := f.put("orders/a", map[string]any{
		"total": 7,
		"links": linkList(map[string]any{"docPath": "products/b"}),
	})

	err = f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerUpdate, Path: after.Path, Before: before, After: after}, nameConfig)
	require.NoError(t, err)

	invoice := f.entries("invoices/i", "orders")
	require.Len(t, invoice, 1)
	assert.Equal(t, 7.0, invoice[0].Snapshot["total"])

	// the new entry picked up the target's tracked values at link time
	order := f.entries("orders/a", "links")
	require.Len(t, order, 1)
	assert.Equal(t, "B", order[0].Snapshot["name"])
	assert.Len(t, f.backLinksTo("products/b"), 1)
}

func TestEngine_Dispatch_Delete(t *testing.T) {
	f := newFixture(t)
	f.put("products/b", map[string]any{"name": "B"})
	f.put("orders/x", map[string]any{
		"links": linkList(map[string]any{"docPath": "orders/a"}),
	})
	f.backLink("orders/a", "orders/x", "links", "name")
	f.backLink("products/b", "orders/a", "links", "name")
	// a back link created through a field that is no longer configured
	f.backLink("products/b", "orders/a", "legacy", "name")

	before, err := model.NewDocument("orders/a", map[string]any{
		"links": linkList(map[string]any{"docPath": "products/b", "name": "B"}),
	})
	require.NoError(t, err)

	err = f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerDelete, Path: before.Path, Before: before}, nameConfig)
	require.NoError(t, err)

	assert.Empty(t, f.entries("orders/x", "links"))
	assert.Empty(t, f.backLinksTo("orders/a"))
	assert.Empty(t, f.backLinksTo("products/b"))
	assert.ElementsMatch(t, []string{"products/b <- orders/a.links", "products/b <- orders/a.legacy"}, f.rec.deletes)
}

func TestEngine_Dispatch_InvalidChange(t *testing.T) {
	f := newFixture(t)
	doc, err := model.NewDocument("orders/a", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.engine.Dispatch(f.ctx, nil, nil), ErrInvalidChange)
	assert.ErrorIs(t, f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerUpdate, After: doc}, nil), ErrInvalidChange)
	assert.ErrorIs(t, f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerDelete, After: doc}, nil), ErrInvalidChange)
	assert.ErrorIs(t, f.engine.Dispatch(f.ctx, &model.Change{Trigger: "rename", Before: doc, After: doc}, nil), ErrUnknownTrigger)

	bad := []link.FieldConfig{{TrackedFields: []string{"name"}}}
	err = f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerUpdate, Before: doc, After: doc}, bad)
	assert.ErrorIs(t, err, link.ErrInvalidFieldConfig)
}

func TestEngine_Dispatch_JoinsErrors(t *testing.T) {
	f := newFixture(t)
	f.put("products/p", map[string]any{"name": "P"})
	for _, path := range []string{"orders/o1", "orders/o2", "orders/o3"} {
		f.put(path, map[string]any{
			"links": linkList(map[string]any{"docPath": "products/p", "name": "P"}),
		})
		f.backLink("products/p", path, "links", "name")
	}
	f.rec.fail["orders/o1"] = assert.AnError
	f.rec.fail["orders/o3"] = assert.AnError

	before, err := model.NewDocument("products/p", map[string]any{"name": "P"})
	require.NoError(t, err)
	after := f.put("products/p", map[string]any{"name": "Q"})

	err = f.engine.Dispatch(f.ctx, &model.Change{Trigger: model.TriggerUpdate, Path: after.Path, Before: before, After: after}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "orders/o1")
	assert.Contains(t, err.Error(), "orders/o3")

	// the healthy referrer was still updated
	assert.Equal(t, "Q", f.entries("orders/o2", "links")[0].Snapshot["name"])
	assert.Equal(t, "P", f.entries("orders/o1", "links")[0].Snapshot["name"])
}

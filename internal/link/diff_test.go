package link

import (
	"testing"

	"github.com/emrgen/propagate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(paths ...string) []Entry {
	list := make([]Entry, 0, len(paths))
	for _, path := range paths {
		list = append(list, NewEntry(path, nil))
	}
	return list
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name    string
		before  []Entry
		after   []Entry
		added   []string
		removed []string
	}{
		{
			name:    "empty to two",
			before:  nil,
			after:   entries("products/a", "products/b"),
			added:   []string{"products/a", "products/b"},
			removed: []string{},
		},
		{
			name:    "two to empty",
			before:  entries("products/a", "products/b"),
			after:   nil,
			added:   []string{},
			removed: []string{"products/a", "products/b"},
		},
		{
			name:    "identical",
			before:  entries("products/a", "products/b"),
			after:   entries("products/a", "products/b"),
			added:   []string{},
			removed: []string{},
		},
		{
			name:    "reordered",
			before:  entries("products/a", "products/b"),
			after:   entries("products/b", "products/a"),
			added:   []string{},
			removed: []string{},
		},
		{
			name:    "duplicates kept",
			before:  entries("products/a"),
			after:   entries("products/c", "products/a", "products/c"),
			added:   []string{"products/c", "products/c"},
			removed: []string{},
		},
		{
			name:    "replace one",
			before:  entries("products/a", "products/b"),
			after:   entries("products/a", "products/c"),
			added:   []string{"products/c"},
			removed: []string{"products/b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := Diff(tt.before, tt.after)
			assert.Equal(t, tt.added, delta.Added)
			assert.Equal(t, tt.removed, delta.Removed)
			assert.Equal(t, len(tt.added) == 0 && len(tt.removed) == 0, delta.Empty())
		})
	}
}

func TestDiffField(t *testing.T) {
	before, err := model.NewDocument("orders/a", map[string]any{
		"links": []any{map[string]any{"docPath": "products/b", "name": "old"}},
	})
	require.NoError(t, err)

	after, err := model.NewDocument("orders/a", map[string]any{
		"links": []any{
			map[string]any{"docPath": "products/b", "name": "old"},
			map[string]any{"docPath": "products/c", "name": "x"},
		},
	})
	require.NoError(t, err)

	delta, err := DiffField(before, after, "links")
	require.NoError(t, err)
	assert.Equal(t, []string{"products/c"}, delta.Added)
	assert.Empty(t, delta.Removed)

	// a missing field on either side reads as an empty list
	delta, err = DiffField(before, after, "other")
	require.NoError(t, err)
	assert.True(t, delta.Empty())

	delta, err = DiffField(nil, after, "links")
	require.NoError(t, err)
	assert.Equal(t, []string{"products/b", "products/c"}, delta.Added)
}

func TestDiffField_Malformed(t *testing.T) {
	before, err := model.NewDocument("orders/a", map[string]any{"links": "products/b"})
	require.NoError(t, err)

	_, err = DiffField(before, nil, "links")
	assert.ErrorIs(t, err, ErrMalformedField)
}

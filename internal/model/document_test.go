package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path       string
		valid      bool
		collection string
	}{
		{path: "orders/o1", valid: true, collection: "orders"},
		{path: "tables/t1/rows/r1", valid: true, collection: "tables/t1/rows"},
		{path: "orders"},
		{path: ""},
		{path: "orders/"},
		{path: "/orders/o1/x"},
		{path: "tables/t1/rows"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.collection, CollectionOf(tt.path))
		})
	}
}

func TestDocument_Fields(t *testing.T) {
	doc, err := NewDocument("orders/o1", map[string]any{"total": 3, "note": "x"})
	require.NoError(t, err)
	assert.Equal(t, "orders", doc.Collection)

	value, ok, err := doc.Get("total")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3.0, value)

	_, ok, err = doc.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	clone := doc.Clone()
	require.NoError(t, clone.SetFields(nil))
	assert.Equal(t, "{}", clone.Data)
	assert.NotEqual(t, doc.Data, clone.Data)

	doc.Data = "{broken"
	_, err = doc.Fields()
	assert.Error(t, err)

	_, err = NewDocument("orders", nil)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

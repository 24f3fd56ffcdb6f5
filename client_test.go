package propagate

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/emrgen/propagate/internal/config"
	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	ctx := context.Background()
	app, err := server.NewApp(&config.Config{
		DbType:      "sqlite",
		SqlitePath:  filepath.Join(t.TempDir(), "propagate.db"),
		Concurrency: 4,
	})
	require.NoError(t, err)
	logrus.SetLevel(logrus.WarnLevel)

	srv := httptest.NewServer(server.NewRouter(app))
	t.Cleanup(func() {
		srv.Close()
		app.Close()
	})

	c := NewClient(srv.URL + "/")

	_, err = c.GetDocument(ctx, "products/p1")
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := c.ReplaceDocument(ctx, "products/p1", map[string]any{"name": "Pen"})
	require.NoError(t, err)
	assert.Equal(t, "products/p1", doc.Path)

	doc, err = c.UpdateDocument(ctx, "products/p1", map[string]any{"price": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Pen", "price": 2.0}, doc.Fields)

	docs, err := c.ListDocuments(ctx, "products")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	err = c.DispatchChange(ctx, &server.ChangeRequest{
		Trigger: "update",
		Path:    "orders/o1",
		Before:  map[string]any{},
		After:   map[string]any{"products": []any{map[string]any{"docPath": "products/p1"}}},
		Configs: []link.FieldConfig{{FieldName: "products", TrackedFields: []string{"name"}}},
	})
	require.NoError(t, err)

	links, err := c.ListBackLinks(ctx, "products/p1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "orders/o1", links[0].ReferrerPath)

	require.NoError(t, c.DeleteDocument(ctx, "products/p1"))
	assert.Error(t, c.DeleteDocument(ctx, "products/p1"))
}

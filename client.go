package propagate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emrgen/propagate/internal/server"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when the server has no document at the requested path.
var ErrNotFound = errors.New("not found")

type Client interface {
	GetDocument(ctx context.Context, path string) (*server.DocumentResponse, error)
	ReplaceDocument(ctx context.Context, path string, fields map[string]any) (*server.DocumentResponse, error)
	UpdateDocument(ctx context.Context, path string, fields map[string]any) (*server.DocumentResponse, error)
	DeleteDocument(ctx context.Context, path string) error
	ListDocuments(ctx context.Context, collection string) ([]*server.DocumentResponse, error)
	ListBackLinks(ctx context.Context, path string) ([]*server.BackLinkResponse, error)
	DispatchChange(ctx context.Context, change *server.ChangeRequest) error
}

type client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client of the propagation service at baseURL.
func NewClient(baseURL string) Client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) GetDocument(ctx context.Context, path string) (*server.DocumentResponse, error) {
	doc := &server.DocumentResponse{}
	return doc, c.do(ctx, http.MethodGet, "/v1/documents/"+path, nil, doc)
}

func (c *client) ReplaceDocument(ctx context.Context, path string, fields map[string]any) (*server.DocumentResponse, error) {
	doc := &server.DocumentResponse{}
	return doc, c.do(ctx, http.MethodPut, "/v1/documents/"+path, fields, doc)
}

func (c *client) UpdateDocument(ctx context.Context, path string, fields map[string]any) (*server.DocumentResponse, error) {
	doc := &server.DocumentResponse{}
	return doc, c.do(ctx, http.MethodPatch, "/v1/documents/"+path, fields, doc)
}

func (c *client) DeleteDocument(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/v1/documents/"+path, nil, nil)
}

func (c *client) ListDocuments(ctx context.Context, collection string) ([]*server.DocumentResponse, error) {
	var docs []*server.DocumentResponse
	return docs, c.do(ctx, http.MethodGet, "/v1/collections/"+collection, nil, &docs)
}

func (c *client) ListBackLinks(ctx context.Context, path string) ([]*server.BackLinkResponse, error) {
	var links []*server.BackLinkResponse
	return links, c.do(ctx, http.MethodGet, "/v1/backlinks/"+path, nil, &links)
}

func (c *client) DispatchChange(ctx context.Context, change *server.ChangeRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/changes", change, nil)
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&apiErr)
		if res.StatusCode == http.StatusNotFound {
			return errors.Wrap(ErrNotFound, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %d %s", method, path, res.StatusCode, apiErr.Error)
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(out)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/propagate"
	"github.com/emrgen/propagate/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handlers serves the document and change endpoints.
type Handlers struct {
	engine  *propagate.Engine
	schema  *link.Schema
	service *service.DocumentService
}

func NewHandlers(engine *propagate.Engine, schema *link.Schema, service *service.DocumentService) *Handlers {
	return &Handlers{engine: engine, schema: schema, service: service}
}

// SetupRoutes registers the API routes.
func (h *Handlers) SetupRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/changes", h.DispatchChange)

		r.Get("/documents/*", h.GetDocument)
		r.Put("/documents/*", h.ReplaceDocument)
		r.Patch("/documents/*", h.UpdateDocument)
		r.Delete("/documents/*", h.DeleteDocument)

		r.Get("/collections/*", h.ListDocuments)
		r.Get("/backlinks/*", h.ListBackLinks)
	})
}

// DocumentResponse is the API shape of a document.
type DocumentResponse struct {
	Path       string         `json:"path"`
	Collection string         `json:"collection"`
	Version    int64          `json:"version"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type BackLinkResponse struct {
	TargetPath    string   `json:"targetPath"`
	ReferrerPath  string   `json:"referrerPath"`
	FieldName     string   `json:"fieldName"`
	TrackedFields []string `json:"trackedFields"`
}

// ChangeRequest is a change reported by a host. Before and After are the document
// fields; configs default to the schema of the document's collection.
type ChangeRequest struct {
	Trigger model.TriggerType  `json:"trigger"`
	Path    string             `json:"path"`
	Before  map[string]any     `json:"before"`
	After   map[string]any     `json:"after"`
	Configs []link.FieldConfig `json:"configs"`
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) DispatchChange(w http.ResponseWriter, r *http.Request) {
	var req ChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	change := &model.Change{Trigger: req.Trigger, Path: req.Path, Timestamp: time.Now().UTC()}
	var err error
	if req.Before != nil {
		if change.Before, err = model.NewDocument(req.Path, req.Before); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.After != nil {
		if change.After, err = model.NewDocument(req.Path, req.After); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	configs := req.Configs
	if configs == nil {
		configs = h.schema.LinkFields(model.CollectionOf(req.Path))
	}

	if err := h.engine.Dispatch(r.Context(), change, configs); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetDocument(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

func (h *Handlers) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	fields, ok := readFields(w, r)
	if !ok {
		return
	}

	doc, err := h.service.ReplaceDocument(r.Context(), chi.URLParam(r, "*"), fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

func (h *Handlers) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	fields, ok := readFields(w, r)
	if !ok {
		return
	}

	doc, err := h.service.UpdateDocument(r.Context(), chi.URLParam(r, "*"), fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeDocument(w, http.StatusOK, doc)
}

func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDocument(r.Context(), chi.URLParam(r, "*")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res := make([]*DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		item, err := toDocumentResponse(doc)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		res = append(res, item)
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ListBackLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListBackLinks(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res := make([]*BackLinkResponse, 0, len(links))
	for _, l := range links {
		tracked, err := l.Tracked()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		res = append(res, &BackLinkResponse{
			TargetPath:    l.TargetPath,
			ReferrerPath:  l.ReferrerPath,
			FieldName:     l.FieldName,
			TrackedFields: tracked,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

func readFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	fields := make(map[string]any)
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return fields, true
}

func toDocumentResponse(doc *model.Document) (*DocumentResponse, error) {
	fields, err := doc.Fields()
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{
		Path:       doc.Path,
		Collection: doc.Collection,
		Version:    doc.Version,
		Fields:     fields,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func writeDocument(w http.ResponseWriter, status int, doc *model.Document) {
	res, err := toDocumentResponse(doc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, res)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, service.ErrDocumentExists):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrInvalidPath),
		errors.Is(err, propagate.ErrInvalidChange),
		errors.Is(err, propagate.ErrUnknownTrigger),
		errors.Is(err, link.ErrInvalidFieldConfig),
		errors.Is(err, link.ErrMalformedField),
		errors.Is(err, link.ErrMalformedEntry):
		writeError(w, http.StatusBadRequest, err)
	default:
		logrus.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("error writing response: %v", err)
	}
}

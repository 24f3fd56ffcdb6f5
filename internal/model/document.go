package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidPath is returned when a document path does not have the collection/id shape.
var ErrInvalidPath = errors.New("invalid document path, expected <collection>/<id>[/<collection>/<id>...]")

// Document is a keyed record at a path like "orders/o1" or "tables/t1/rows/r1".
// The fields are stored as a JSON object in Data.
type Document struct {
	Path       string    `gorm:"primaryKey;not null" json:"path"`
	Collection string    `gorm:"not null;index:idx_documents_collection" json:"collection"`
	Data       string    `gorm:"not null;default:'{}'" json:"data"`
	Version    int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Document) TableName() string {
	return "documents"
}

// NewDocument builds a document at path holding fields.
func NewDocument(path string, fields map[string]any) (*Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	doc := &Document{Path: path, Collection: CollectionOf(path)}
	if err := doc.SetFields(fields); err != nil {
		return nil, err
	}

	return doc, nil
}

// Fields decodes the document data. An empty document yields an empty map.
func (d *Document) Fields() (map[string]any, error) {
	fields := make(map[string]any)
	if d == nil || d.Data == "" {
		return fields, nil
	}

	if err := json.Unmarshal([]byte(d.Data), &fields); err != nil {
		return nil, err
	}

	return fields, nil
}

// SetFields replaces the document data.
func (d *Document) SetFields(fields map[string]any) error {
	if fields == nil {
		fields = make(map[string]any)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	d.Data = string(data)

	return nil
}

// Get returns the value of a single field.
func (d *Document) Get(name string) (any, bool, error) {
	fields, err := d.Fields()
	if err != nil {
		return nil, false, err
	}

	value, ok := fields[name]
	return value, ok, nil
}

// Clone returns a copy that shares nothing with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

func (d *Document) MarshalBinary() ([]byte, error) {
	return json.Marshal(d)
}

// ValidatePath checks that path is made of an even number of non-empty segments.
func ValidatePath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}

	segments := strings.Split(path, "/")
	if len(segments)%2 != 0 {
		return ErrInvalidPath
	}

	for _, segment := range segments {
		if segment == "" {
			return ErrInvalidPath
		}
	}

	return nil
}

// CollectionOf returns the collection part of a document path.
func CollectionOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

package model

import (
	"encoding/json"
	"time"
)

// TriggerType is the kind of write that produced a change.
type TriggerType string

const (
	TriggerCreate TriggerType = "create"
	TriggerUpdate TriggerType = "update"
	TriggerDelete TriggerType = "delete"
)

// Change is a document change event. Before is nil for creates, After is nil for deletes.
type Change struct {
	ID        string      `json:"id"`
	Trigger   TriggerType `json:"trigger"`
	Path      string      `json:"path"`
	Before    *Document   `json:"before,omitempty"`
	After     *Document   `json:"after,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Collection returns the collection of the changed document.
func (c *Change) Collection() string {
	if c.Path != "" {
		return CollectionOf(c.Path)
	}
	if c.After != nil {
		return c.After.Collection
	}
	if c.Before != nil {
		return c.Before.Collection
	}
	return ""
}

func (c *Change) MarshalBinary() ([]byte, error) {
	return json.Marshal(c)
}

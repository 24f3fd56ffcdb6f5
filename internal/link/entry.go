package link

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/emrgen/propagate/internal/model"
)

// DocPathKey is the key holding the target path inside an encoded link entry.
const DocPathKey = "docPath"

// Entry is one element of a link field: a pointer to a target document plus a copy of
// some of the target's fields. Encoded as {"docPath": "...", <field>: <value>, ...}.
type Entry struct {
	DocPath  string
	Snapshot map[string]any
}

func NewEntry(docPath string, snapshot map[string]any) Entry {
	if snapshot == nil {
		snapshot = make(map[string]any)
	}
	return Entry{DocPath: docPath, Snapshot: snapshot}
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Encode())
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		return err
	}
	*e = entry

	return nil
}

// Encode flattens the entry into the stored object shape.
func (e Entry) Encode() map[string]any {
	value := make(map[string]any, len(e.Snapshot)+1)
	for k, v := range e.Snapshot {
		value[k] = v
	}
	value[DocPathKey] = e.DocPath
	return value
}

// Apply overwrites the tracked keys of the snapshot with the values from fields.
// Tracked keys missing from fields are removed. It reports whether anything changed.
func (e *Entry) Apply(fields map[string]any, tracked []string) bool {
	if e.Snapshot == nil {
		e.Snapshot = make(map[string]any)
	}

	changed := false
	for _, name := range tracked {
		if name == DocPathKey {
			continue
		}

		value, ok := fields[name]
		current, exists := e.Snapshot[name]
		if !ok {
			if exists {
				delete(e.Snapshot, name)
				changed = true
			}
			continue
		}

		if !exists || !reflect.DeepEqual(current, value) {
			e.Snapshot[name] = value
			changed = true
		}
	}

	return changed
}

// DecodeField decodes a link field value. A nil value is an empty list.
func DecodeField(value any) ([]Entry, error) {
	if value == nil {
		return make([]Entry, 0), nil
	}

	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []map[string]any:
		items = make([]any, 0, len(v))
		for _, item := range v {
			items = append(items, item)
		}
	case []Entry:
		return append(make([]Entry, 0, len(v)), v...), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrMalformedField, value)
	}

	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		entry, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// DecodeDocumentField reads and decodes a link field of a document.
// A nil document or a missing field is an empty list.
func DecodeDocumentField(doc *model.Document, fieldName string) ([]Entry, error) {
	if doc == nil {
		return make([]Entry, 0), nil
	}

	value, _, err := doc.Get(fieldName)
	if err != nil {
		return nil, err
	}

	return DecodeField(value)
}

// EncodeEntries converts entries back into the stored list shape.
func EncodeEntries(entries []Entry) []any {
	values := make([]any, 0, len(entries))
	for _, entry := range entries {
		values = append(values, entry.Encode())
	}
	return values
}

// Paths returns the doc paths of entries, in order, duplicates included.
func Paths(entries []Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.DocPath)
	}
	return paths
}

func decodeEntry(item any) (Entry, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Entry{}, fmt.Errorf("%w: expected object, got %T", ErrMalformedEntry, item)
	}

	path, ok := obj[DocPathKey].(string)
	if !ok || path == "" {
		return Entry{}, fmt.Errorf("%w: missing %s", ErrMalformedEntry, DocPathKey)
	}

	snapshot := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == DocPathKey {
			continue
		}
		snapshot[k] = v
	}

	return Entry{DocPath: path, Snapshot: snapshot}, nil
}

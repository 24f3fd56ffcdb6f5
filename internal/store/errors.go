package store

import (
	"errors"
)

var (
	// ErrDocumentNotFound is returned when a document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNotAnArray is returned when RemoveArrayElements is used on a non array field.
	ErrNotAnArray = errors.New("field is not an array")
)

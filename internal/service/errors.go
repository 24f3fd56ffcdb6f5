package service

import (
	"errors"

	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/store"
)

var (
	// ErrDocumentExists is returned when creating a document at a path already in use.
	ErrDocumentExists = errors.New("document already exists")
	// ErrDocumentNotFound is returned when a document is not found.
	ErrDocumentNotFound = store.ErrDocumentNotFound
	// ErrInvalidPath is returned for paths that are not <collection>/<id> pairs.
	ErrInvalidPath = model.ErrInvalidPath
)

package link

import "errors"

var (
	// ErrMalformedField is returned when a link field is not a list.
	ErrMalformedField = errors.New("link field is not a list")
	// ErrMalformedEntry is returned when a link entry is not an object with a docPath.
	ErrMalformedEntry = errors.New("malformed link entry")
	// ErrInvalidFieldConfig is returned when a link field config has no field name.
	ErrInvalidFieldConfig = errors.New("link field config is missing fieldName")
)

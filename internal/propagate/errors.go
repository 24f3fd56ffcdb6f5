package propagate

import "errors"

var (
	// ErrInvalidChange is returned when a change lacks the snapshots its trigger needs.
	ErrInvalidChange = errors.New("change is missing its before or after document")
	// ErrUnknownTrigger is returned for trigger types other than create, update and delete.
	ErrUnknownTrigger = errors.New("unknown trigger type")
)

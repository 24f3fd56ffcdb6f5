package link

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/propagate/internal/model"
)

// Delta is the change of a link field between two versions of a document.
type Delta struct {
	Added   []string
	Removed []string
}

// Empty reports whether the field gained or lost no targets.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Diff compares two link lists by doc path. Membership is order insensitive, but
// duplicate paths within one list are kept in the result.
func Diff(before, after []Entry) Delta {
	beforePaths := Paths(before)
	afterPaths := Paths(after)

	beforeSet := mapset.NewThreadUnsafeSet[string](beforePaths...)
	afterSet := mapset.NewThreadUnsafeSet[string](afterPaths...)

	delta := Delta{
		Added:   make([]string, 0),
		Removed: make([]string, 0),
	}

	for _, path := range afterPaths {
		if !beforeSet.Contains(path) {
			delta.Added = append(delta.Added, path)
		}
	}

	for _, path := range beforePaths {
		if !afterSet.Contains(path) {
			delta.Removed = append(delta.Removed, path)
		}
	}

	return delta
}

// DiffField diffs fieldName between before and after. Either document may be nil.
func DiffField(before, after *model.Document, fieldName string) (Delta, error) {
	beforeEntries, err := DecodeDocumentField(before, fieldName)
	if err != nil {
		return Delta{}, err
	}

	afterEntries, err := DecodeDocumentField(after, fieldName)
	if err != nil {
		return Delta{}, err
	}

	return Diff(beforeEntries, afterEntries), nil
}

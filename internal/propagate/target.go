package propagate

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AddTargetRef records that referrerPath caches targetPath in fieldName and refreshes the
// cached copy with the target's current tracked values. Adding the same back link twice
// leaves a single record. A missing target is skipped.
func (e *Engine) AddTargetRef(ctx context.Context, referrerPath, targetPath, fieldName string, trackedFields []string) error {
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		docs, err := lockInOrder(ctx, tx, targetPath, referrerPath)
		if err != nil {
			return err
		}

		target, ok := docs[targetPath]
		if !ok {
			logrus.Warnf("link target %s of %s.%s does not exist, skipping", targetPath, referrerPath, fieldName)
			return nil
		}

		fields, err := target.Fields()
		if err != nil {
			return err
		}

		backLink, err := model.NewBackLink(targetPath, referrerPath, fieldName, trackedFields)
		if err != nil {
			return err
		}

		if err := tx.UpsertBackLink(ctx, backLink); err != nil {
			return err
		}

		_, err = refreshCopies(ctx, tx, referrerPath, fieldName, targetPath, fields, trackedFields)
		return err
	})

	return errors.Wrapf(err, "add back link %s <- %s.%s", targetPath, referrerPath, fieldName)
}

// lockInOrder reads the documents at paths through tx in path order. Row locks are taken
// in the same order by every caller, so two transactions locking the same pair cannot
// deadlock. Missing documents are left out of the result.
func lockInOrder(ctx context.Context, tx store.Store, paths ...string) (map[string]*model.Document, error) {
	ordered := mapset.NewThreadUnsafeSet(paths...).ToSlice()
	sort.Strings(ordered)

	docs := make(map[string]*model.Document, len(ordered))
	for _, path := range ordered {
		doc, err := tx.GetDocument(ctx, path)
		if errors.Is(err, store.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs[path] = doc
	}

	return docs, nil
}

// RemoveTargetRef drops the back link from targetPath to referrerPath's fieldName.
// Removing a back link that does not exist is a no-op.
func (e *Engine) RemoveTargetRef(ctx context.Context, referrerPath, targetPath, fieldName string) error {
	err := e.store.DeleteBackLink(ctx, targetPath, referrerPath, fieldName)
	return errors.Wrapf(err, "remove back link %s <- %s.%s", targetPath, referrerPath, fieldName)
}

type targetRef struct {
	target string
	field  string
}

// RemoveRefsOnReferrerDelete removes the back links a deleted referrer left on its
// targets. Targets come from the configured link fields of the deleted snapshot and from
// the back link index, so links whose field is no longer configured are cleaned up too.
func (e *Engine) RemoveRefsOnReferrerDelete(ctx context.Context, deleted *model.Document, configs []link.FieldConfig) error {
	if deleted == nil {
		return ErrInvalidChange
	}

	refs := mapset.NewThreadUnsafeSet[targetRef]()
	for _, config := range configs {
		entries, err := link.DecodeDocumentField(deleted, config.FieldName)
		if err != nil {
			logrus.Warnf("ignoring malformed link field %s of deleted %s: %v", config.FieldName, deleted.Path, err)
			continue
		}
		for _, entry := range entries {
			refs.Add(targetRef{target: entry.DocPath, field: config.FieldName})
		}
	}

	links, err := e.store.ListBackLinksFrom(ctx, deleted.Path)
	if err != nil {
		return errors.Wrapf(err, "list back links from %s", deleted.Path)
	}
	for _, l := range links {
		refs.Add(targetRef{target: l.TargetPath, field: l.FieldName})
	}

	g := newGroup(e.concurrency)
	for _, ref := range refs.ToSlice() {
		g.Go(func() error {
			return e.RemoveTargetRef(ctx, deleted.Path, ref.target, ref.field)
		})
	}

	return g.Wait()
}

// refreshCopies overwrites the tracked values of every entry in referrerPath's fieldName
// that points at targetPath, writing only when a value changed. It reports whether such
// an entry exists. A missing referrer is not an error.
func refreshCopies(ctx context.Context, tx store.Store, referrerPath, fieldName, targetPath string, fields map[string]any, tracked []string) (bool, error) {
	referrer, err := tx.GetDocument(ctx, referrerPath)
	if errors.Is(err, store.ErrDocumentNotFound) {
		logrus.Debugf("referrer %s of %s is gone, skipping", referrerPath, targetPath)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	entries, err := link.DecodeDocumentField(referrer, fieldName)
	if err != nil {
		return false, err
	}

	found, changed := false, false
	for i := range entries {
		if entries[i].DocPath != targetPath {
			continue
		}
		found = true
		if entries[i].Apply(fields, tracked) {
			changed = true
		}
	}

	if !found {
		logrus.Debugf("stale back link %s <- %s.%s, no matching entry", targetPath, referrerPath, fieldName)
		return false, nil
	}

	if !changed {
		return true, nil
	}

	return true, tx.MergeFields(ctx, referrerPath, map[string]any{
		fieldName: link.EncodeEntries(entries),
	})
}

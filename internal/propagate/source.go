package propagate

import (
	"context"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PropagateChanges pushes the tracked fields of source into every link entry that caches
// it. Each referrer is updated in its own transaction; a failing referrer does not stop
// the others.
func (e *Engine) PropagateChanges(ctx context.Context, source *model.Document) error {
	if source == nil {
		return ErrInvalidChange
	}

	links, err := e.store.ListBackLinksTo(ctx, source.Path)
	if err != nil {
		return errors.Wrapf(err, "list back links to %s", source.Path)
	}

	if len(links) == 0 {
		return nil
	}

	fields, err := source.Fields()
	if err != nil {
		return errors.Wrapf(err, "decode %s", source.Path)
	}

	logrus.Infof("propagating %s to %d referrers", source.Path, len(links))

	g := newGroup(e.concurrency)
	for _, backLink := range links {
		g.Go(func() error {
			tracked, err := backLink.Tracked()
			if err != nil {
				return errors.Wrapf(err, "back link %s <- %s.%s", backLink.TargetPath, backLink.ReferrerPath, backLink.FieldName)
			}

			err = e.store.Transaction(ctx, func(tx store.Store) error {
				_, err := refreshCopies(ctx, tx, backLink.ReferrerPath, backLink.FieldName, source.Path, fields, tracked)
				return err
			})
			return errors.Wrapf(err, "propagate %s to %s.%s", source.Path, backLink.ReferrerPath, backLink.FieldName)
		})
	}

	return g.Wait()
}

// RemoveCopiesOfDeletedDoc removes every link entry pointing at a deleted document from
// the referrers that cache it. The back links to the deleted document are dropped once
// every referrer was swept; after a partial failure they are kept so the sweep can be
// retried.
func (e *Engine) RemoveCopiesOfDeletedDoc(ctx context.Context, deleted *model.Document) error {
	if deleted == nil {
		return ErrInvalidChange
	}

	links, err := e.store.ListBackLinksTo(ctx, deleted.Path)
	if err != nil {
		return errors.Wrapf(err, "list back links to %s", deleted.Path)
	}

	if len(links) == 0 {
		return nil
	}

	logrus.Infof("removing copies of deleted %s from %d referrers", deleted.Path, len(links))

	g := newGroup(e.concurrency)
	for _, backLink := range links {
		g.Go(func() error {
			return e.removeCopies(ctx, backLink.ReferrerPath, backLink.FieldName, deleted.Path)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return errors.Wrapf(e.store.DeleteBackLinksTo(ctx, deleted.Path), "delete back links to %s", deleted.Path)
}

func (e *Engine) removeCopies(ctx context.Context, referrerPath, fieldName, targetPath string) error {
	removed, err := e.store.RemoveArrayElements(ctx, referrerPath, fieldName, func(item any) bool {
		entries, err := link.DecodeField([]any{item})
		return err == nil && entries[0].DocPath == targetPath
	})
	if errors.Is(err, store.ErrDocumentNotFound) {
		logrus.Debugf("referrer %s of deleted %s is gone, skipping", referrerPath, targetPath)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "remove copies of %s from %s.%s", targetPath, referrerPath, fieldName)
	}

	if removed == 0 {
		logrus.Debugf("stale back link %s <- %s.%s, no matching entry", targetPath, referrerPath, fieldName)
	}

	return nil
}

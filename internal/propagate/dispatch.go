package propagate

import (
	"context"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Dispatch runs the propagation work for one document change.
//
// On update the document's tracked fields are pushed into every link entry that caches
// it, and each configured link field is diffed to add or remove back links on its
// targets. On delete the cached copies of the document are removed from its referrers
// and the back links it created on its targets are dropped. Creates do nothing.
//
// All sub-operations run concurrently. The returned error joins every failure; writes
// that already succeeded are not rolled back.
func (e *Engine) Dispatch(ctx context.Context, change *model.Change, configs []link.FieldConfig) error {
	if change == nil {
		return ErrInvalidChange
	}

	switch change.Trigger {
	case model.TriggerCreate:
		logrus.Debugf("created %s, nothing to propagate", change.Path)
		return nil

	case model.TriggerUpdate:
		if change.Before == nil || change.After == nil {
			return ErrInvalidChange
		}

		g := newGroup(e.concurrency)
		g.Go(func() error {
			return e.PropagateChanges(ctx, change.After)
		})
		for _, config := range configs {
			g.Go(func() error {
				return e.UpdateLinks(ctx, change.Before, change.After, config)
			})
		}
		return g.Wait()

	case model.TriggerDelete:
		if change.Before == nil {
			return ErrInvalidChange
		}

		g := newGroup(e.concurrency)
		g.Go(func() error {
			return e.RemoveCopiesOfDeletedDoc(ctx, change.Before)
		})
		g.Go(func() error {
			return e.RemoveRefsOnReferrerDelete(ctx, change.Before, configs)
		})
		return g.Wait()

	default:
		return errors.Wrapf(ErrUnknownTrigger, "trigger %q", change.Trigger)
	}
}

// UpdateLinks diffs one link field between two versions of a referrer and adds or
// removes the matching back links. Nothing is written when the set of targets is unchanged.
func (e *Engine) UpdateLinks(ctx context.Context, before, after *model.Document, config link.FieldConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	delta, err := link.DiffField(before, after, config.FieldName)
	if err != nil {
		return errors.Wrapf(err, "diff %s.%s", after.Path, config.FieldName)
	}

	if delta.Empty() {
		logrus.Debugf("no change in %s link field of %s", config.FieldName, after.Path)
		return nil
	}

	logrus.Infof("link field %s of %s: added %v, removed %v", config.FieldName, after.Path, delta.Added, delta.Removed)

	g := newGroup(e.concurrency)
	for _, target := range delta.Added {
		g.Go(func() error {
			return e.AddTargetRef(ctx, after.Path, target, config.FieldName, config.TrackedFields)
		})
	}
	for _, target := range delta.Removed {
		g.Go(func() error {
			return e.RemoveTargetRef(ctx, after.Path, target, config.FieldName)
		})
	}

	return g.Wait()
}

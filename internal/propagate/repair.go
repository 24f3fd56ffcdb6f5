package propagate

import (
	"context"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultRepairBatch = 500

// RepairReport counts what a repair pass did.
type RepairReport struct {
	Checked  int64
	Resynced int64 // copies refreshed from a live target
	Dropped  int64 // back links whose referrer no longer links the target
	Swept    int64 // copies of targets that no longer exist
	Linked   int64 // link entries that had no back link
}

// Repair heals what concurrent writes and failed dispatches left behind.
//
// The first pass walks the back link index: back links without a matching link entry are
// dropped, copies of deleted targets are removed and every other copy is resynced with
// its target. The second pass walks the link fields schema configures and adds the back
// link of every entry that has none.
func (e *Engine) Repair(ctx context.Context, batch int, schema *link.Schema) (*RepairReport, error) {
	if batch <= 0 {
		batch = defaultRepairBatch
	}

	// read the whole index first, the pass below deletes rows
	links := make([]*model.BackLink, 0)
	for offset := 0; ; offset += batch {
		page, err := e.store.ListBackLinks(ctx, offset, batch)
		if err != nil {
			return nil, errors.Wrap(err, "list back links")
		}
		links = append(links, page...)
		if len(page) < batch {
			break
		}
	}

	report := &RepairReport{}
	g := newGroup(e.concurrency)
	for _, backLink := range links {
		g.Go(func() error {
			atomic.AddInt64(&report.Checked, 1)
			return e.repairBackLink(ctx, backLink, report)
		})
	}
	backLinkErr := g.Wait()

	var tables []link.TableConfig
	if schema != nil {
		tables = schema.Tables
	}

	g = newGroup(e.concurrency)
	g.Add(backLinkErr)
	for _, table := range tables {
		referrers, err := e.direct.ListDocuments(ctx, table.Collection)
		if err != nil {
			g.Add(errors.Wrapf(err, "list %s", table.Collection))
			continue
		}
		for _, referrer := range referrers {
			g.Go(func() error {
				return e.repairLinkEntries(ctx, referrer, table.LinkFields, report)
			})
		}
	}

	err := g.Wait()
	logrus.Infof("repair checked %d back links: %d resynced, %d dropped, %d swept, %d linked",
		report.Checked, report.Resynced, report.Dropped, report.Swept, report.Linked)

	return report, err
}

func (e *Engine) repairBackLink(ctx context.Context, backLink *model.BackLink, report *RepairReport) error {
	tracked, err := backLink.Tracked()
	if err != nil {
		return errors.Wrapf(err, "back link %s <- %s.%s", backLink.TargetPath, backLink.ReferrerPath, backLink.FieldName)
	}

	target, err := e.direct.GetDocument(ctx, backLink.TargetPath)
	if errors.Is(err, store.ErrDocumentNotFound) {
		if err := e.removeCopies(ctx, backLink.ReferrerPath, backLink.FieldName, backLink.TargetPath); err != nil {
			return err
		}
		atomic.AddInt64(&report.Swept, 1)
		return e.RemoveTargetRef(ctx, backLink.ReferrerPath, backLink.TargetPath, backLink.FieldName)
	}
	if err != nil {
		return errors.Wrapf(err, "get %s", backLink.TargetPath)
	}

	fields, err := target.Fields()
	if err != nil {
		return errors.Wrapf(err, "decode %s", target.Path)
	}

	err = e.store.Transaction(ctx, func(tx store.Store) error {
		found, err := refreshCopies(ctx, tx, backLink.ReferrerPath, backLink.FieldName, backLink.TargetPath, fields, tracked)
		if err != nil {
			return err
		}

		if !found {
			atomic.AddInt64(&report.Dropped, 1)
			return tx.DeleteBackLink(ctx, backLink.TargetPath, backLink.ReferrerPath, backLink.FieldName)
		}

		atomic.AddInt64(&report.Resynced, 1)
		return nil
	})

	return errors.Wrapf(err, "repair %s <- %s.%s", backLink.TargetPath, backLink.ReferrerPath, backLink.FieldName)
}

// repairLinkEntries adds the missing back links of referrer's configured link fields.
// Entries pointing at a document that no longer exists are removed.
func (e *Engine) repairLinkEntries(ctx context.Context, referrer *model.Document, configs []link.FieldConfig, report *RepairReport) error {
	existing, err := e.store.ListBackLinksFrom(ctx, referrer.Path)
	if err != nil {
		return errors.Wrapf(err, "list back links from %s", referrer.Path)
	}

	linked := mapset.NewThreadUnsafeSet[targetRef]()
	for _, l := range existing {
		linked.Add(targetRef{target: l.TargetPath, field: l.FieldName})
	}

	g := newGroup(e.concurrency)
	for _, config := range configs {
		if err := config.Validate(); err != nil {
			return err
		}

		entries, err := link.DecodeDocumentField(referrer, config.FieldName)
		if err != nil {
			logrus.Warnf("skipping malformed link field %s.%s: %v", referrer.Path, config.FieldName, err)
			continue
		}

		for _, target := range mapset.NewThreadUnsafeSet(link.Paths(entries)...).ToSlice() {
			if linked.Contains(targetRef{target: target, field: config.FieldName}) {
				continue
			}
			g.Go(func() error {
				return e.linkEntry(ctx, referrer.Path, target, config, report)
			})
		}
	}

	return g.Wait()
}

func (e *Engine) linkEntry(ctx context.Context, referrerPath, targetPath string, config link.FieldConfig, report *RepairReport) error {
	_, err := e.direct.GetDocument(ctx, targetPath)
	if errors.Is(err, store.ErrDocumentNotFound) {
		if err := e.removeCopies(ctx, referrerPath, config.FieldName, targetPath); err != nil {
			return err
		}
		atomic.AddInt64(&report.Swept, 1)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "get %s", targetPath)
	}

	logrus.Debugf("linking unindexed entry %s.%s -> %s", referrerPath, config.FieldName, targetPath)
	if err := e.AddTargetRef(ctx, referrerPath, targetPath, config.FieldName, config.TrackedFields); err != nil {
		return err
	}
	atomic.AddInt64(&report.Linked, 1)

	return nil
}

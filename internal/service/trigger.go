package service

import (
	"context"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/propagate"
	"github.com/emrgen/propagate/internal/queue"
	"github.com/sirupsen/logrus"
)

// Trigger receives the changes committed by the document service.
type Trigger interface {
	Publish(ctx context.Context, change *model.Change) error
}

var (
	_ Trigger = (*DirectTrigger)(nil)
	_ Trigger = (queue.ChangeQueue)(nil)
)

// DirectTrigger dispatches each change before Publish returns, with the link fields
// configured for the changed document's collection.
type DirectTrigger struct {
	engine *propagate.Engine
	schema *link.Schema
}

func NewDirectTrigger(engine *propagate.Engine, schema *link.Schema) *DirectTrigger {
	return &DirectTrigger{engine: engine, schema: schema}
}

func (d *DirectTrigger) Publish(ctx context.Context, change *model.Change) error {
	return d.engine.Dispatch(ctx, change, d.schema.LinkFields(change.Collection()))
}

// TriggerWorker dispatches the changes read from a queue.
type TriggerWorker struct {
	queue   queue.ChangeQueue
	trigger Trigger
}

func NewTriggerWorker(queue queue.ChangeQueue, trigger Trigger) *TriggerWorker {
	return &TriggerWorker{queue: queue, trigger: trigger}
}

// Run consumes the queue until ctx is done. A failed dispatch is logged and the
// change is dropped; the repair job heals what it left behind.
func (w *TriggerWorker) Run(ctx context.Context) error {
	changes, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	logrus.Infof("trigger worker started")
	for change := range changes {
		if err := w.trigger.Publish(ctx, change); err != nil {
			logrus.Errorf("error dispatching %s change %s of %s: %v", change.Trigger, change.ID, change.Path, err)
			continue
		}
		logrus.Debugf("dispatched %s change %s of %s", change.Trigger, change.ID, change.Path)
	}
	logrus.Infof("trigger worker stopped")

	return nil
}

package jobs

import (
	"context"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/propagate"
	"github.com/sirupsen/logrus"
)

var _ CronJob = (*RepairTask)(nil)

// RepairTask runs a repair pass of the propagation engine.
type RepairTask struct {
	engine *propagate.Engine
	schema *link.Schema
	cron   string
	batch  int
}

func NewRepairTask(schedule string, engine *propagate.Engine, schema *link.Schema, batch int) *RepairTask {
	return &RepairTask{
		engine: engine,
		schema: schema,
		cron:   schedule,
		batch:  batch,
	}
}

func (r *RepairTask) Name() string {
	return "repair"
}

func (r *RepairTask) Schedule() string {
	return r.cron
}

func (r *RepairTask) Run() {
	report, err := r.engine.Repair(context.Background(), r.batch, r.schema)
	if err != nil {
		logrus.Errorf("repair failed: %v", err)
		return
	}
	logrus.Debugf("repair done: %+v", *report)
}

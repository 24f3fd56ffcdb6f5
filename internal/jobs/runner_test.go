package jobs

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/emrgen/propagate/internal/propagate"
	"github.com/emrgen/propagate/internal/store"
	"github.com/emrgen/propagate/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingJob) Name() string     { return "blocking" }
func (b *blockingJob) Schedule() string { return "@every 1h" }

func (b *blockingJob) Run() {
	b.runs.Add(1)
	b.started <- struct{}{}
	<-b.release
}

func TestTaskExecutor_SkipsOverlappingRuns(t *testing.T) {
	job := &blockingJob{started: make(chan struct{}, 2), release: make(chan struct{})}
	executor := NewTaskExecutor(job)
	run := executor.guard(job)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run()
	}()
	<-job.started

	// the first run holds the job
	run()
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.release)
	wg.Wait()

	// released, the job runs again
	run()
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestTaskExecutor_Run(t *testing.T) {
	engine := propagate.NewEngine(store.NewGormStore(tester.TestDB(t)))

	executor := NewTaskExecutor(
		NewRepairTask("@every 1h", engine, nil, 100),
		NewRepairTask("", engine, nil, 100),
	)
	require.NoError(t, executor.Run())
	executor.Stop()

	bad := NewTaskExecutor(NewRepairTask("not a schedule", engine, nil, 100))
	assert.Error(t, bad.Run())
}

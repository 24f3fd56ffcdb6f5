package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run()
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs cron jobs on their schedule. A tick that finds the previous run of
// the same job still going is skipped.
type TaskExecutor struct {
	cron     *cron.Cron
	cronJobs []CronJob
	running  mapset.Set[string]
	mu       sync.Mutex
}

func NewTaskExecutor(cronJobs ...CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:     cron.New(),
		cronJobs: cronJobs,
		running:  mapset.NewThreadUnsafeSet[string](),
	}
}

// Run schedules the jobs and starts the cron in its own goroutine.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		if job.Schedule() == "" {
			logrus.Infof("job %s has no schedule, not scheduled", job.Name())
			continue
		}

		if err := t.cron.AddFunc(job.Schedule(), t.guard(job)); err != nil {
			logrus.Errorf("failed to add job %s to cron: %v", job.Name(), err)
			return err
		}
		logrus.Infof("scheduled job %s: %s", job.Name(), job.Schedule())
	}

	t.cron.Start()
	return nil
}

func (t *TaskExecutor) guard(job Job) func() {
	return func() {
		t.mu.Lock()
		if t.running.Contains(job.Name()) {
			t.mu.Unlock()
			logrus.Warnf("job %s is still running, skipping", job.Name())
			return
		}
		t.running.Add(job.Name())
		t.mu.Unlock()

		defer func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.running.Remove(job.Name())
		}()

		job.Run()
	}
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all jobs")
	t.cron.Stop()
}

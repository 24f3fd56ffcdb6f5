package server

import (
	"errors"

	"github.com/emrgen/propagate/internal/cache"
	"github.com/emrgen/propagate/internal/compress"
	"github.com/emrgen/propagate/internal/config"
	"github.com/emrgen/propagate/internal/jobs"
	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/propagate"
	"github.com/emrgen/propagate/internal/queue"
	"github.com/emrgen/propagate/internal/service"
	"github.com/emrgen/propagate/internal/store"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds the wired components of a propagation service.
type App struct {
	Config  *config.Config
	Store   store.Store
	Schema  *link.Schema
	Engine  *propagate.Engine
	Direct  *service.DirectTrigger
	Service *service.DocumentService
	// Queue is nil when changes are dispatched inline.
	Queue queue.ChangeQueue

	db    *gorm.DB
	redis *redis.Client
}

// NewApp opens the database, the cache and the change queue named by cnf and wires
// the engine and the document service on top of them.
func NewApp(cnf *config.Config) (*App, error) {
	db, err := config.OpenDb(cnf)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cnf, db: db}
	return app, app.wire()
}

func (a *App) wire() error {
	cnf := a.Config

	docStore := store.NewGormStore(a.db)
	if err := docStore.Migrate(); err != nil {
		return err
	}
	a.Store = docStore

	if cnf.RedisAddr != "" {
		a.redis = cache.NewRedis(cnf.RedisAddr, cnf.RedisPassword, cnf.RedisDB)
		a.Store = store.NewCachedStore(docStore, cache.NewRedisDocumentCache(a.redis, cnf.CacheTTL))
	}

	schema, err := config.LoadSchema(cnf.SchemaPath)
	if err != nil {
		return err
	}
	a.Schema = schema

	a.Engine = propagate.NewEngine(a.Store,
		propagate.WithConcurrency(cnf.Concurrency),
		propagate.WithDirectReads(docStore),
	)
	a.Direct = service.NewDirectTrigger(a.Engine, a.Schema)

	compressor, err := compress.New(cnf.Compression)
	if err != nil {
		return err
	}

	switch cnf.Queue {
	case "redis":
		if a.redis == nil {
			return errors.New("QUEUE=redis requires REDIS_ADDR")
		}
		a.Queue = queue.NewRedisQueue(a.redis, "", compressor)
	case "kafka":
		kafkaQueue, err := queue.NewKafkaQueue(cnf.KafkaBrokers, cnf.KafkaTopic, cnf.KafkaGroup, compressor)
		if err != nil {
			return err
		}
		a.Queue = kafkaQueue
	case "", "none":
	default:
		return errors.New("unknown QUEUE: " + cnf.Queue)
	}

	var trigger service.Trigger = a.Direct
	if a.Queue != nil {
		trigger = a.Queue
	}
	a.Service = service.NewDocumentService(a.Store, a.Schema, trigger)

	logrus.Infof("wired %s store, queue %q, %d collections with link fields", cnf.DbType, cnf.Queue, len(a.Schema.Tables))

	return nil
}

// Worker returns the worker draining the change queue, nil without a queue.
func (a *App) Worker() *service.TriggerWorker {
	if a.Queue == nil {
		return nil
	}
	return service.NewTriggerWorker(a.Queue, a.Direct)
}

// Jobs returns the scheduled jobs of the service.
func (a *App) Jobs() *jobs.TaskExecutor {
	return jobs.NewTaskExecutor(jobs.NewRepairTask(a.Config.RepairSchedule, a.Engine, a.Schema, 0))
}

func (a *App) Close() {
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			logrus.Errorf("error closing change queue: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logrus.Errorf("error closing redis: %v", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

package tester

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/emrgen/propagate/internal/cache"
	"github.com/emrgen/propagate/internal/model"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB opens a migrated database for a single test. Tests run against a fresh sqlite
// file unless TEST_DATABASE_URL points at a postgres database.
func TestDB(t testing.TB) *gorm.DB {
	t.Helper()

	_ = os.Setenv("ENV", "test")

	cnf := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var db *gorm.DB
	var err error
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), cnf)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		t.Cleanup(func() {
			db.Exec("DELETE FROM back_links")
			db.Exec("DELETE FROM documents")
		})
	} else {
		path := filepath.Join(t.TempDir(), "propagate.db")
		db, err = gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), cnf)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}

		// sqlite allows a single writer, a single connection keeps concurrent
		// goroutines from failing with "database is locked"
		sqlDB, err := db.DB()
		if err != nil {
			t.Fatalf("sqlite handle: %v", err)
		}
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() {
			_ = sqlDB.Close()
		})
	}

	if err := model.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logrus.SetLevel(logrus.WarnLevel)

	return db
}

// Redis returns a client for the redis server at TEST_REDIS_ADDR and skips the test
// when none is configured.
func Redis(t testing.TB) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := cache.NewRedis(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unavailable: %v", addr, err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

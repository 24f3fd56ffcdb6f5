package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DbType      string
	DatabaseURL string
	SqlitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Queue selects how changes reach the engine: none dispatches inline.
	Queue        string
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroup   string
	Compression  string

	SchemaPath     string
	HttpPort       string
	Concurrency    int
	RepairSchedule string
	LogLevel       string
}

// LoadConfig reads the configuration from the environment. A .env file in the working
// directory is loaded first.
func LoadConfig() *Config {
	cnf := &Config{
		DbType:         getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SqlitePath:     getEnv("SQLITE_PATH", "./.tmp/db/propagate.db"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0),
		CacheTTL:       getDuration("CACHE_TTL", time.Hour),
		Queue:          getEnv("QUEUE", "none"),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "document-changes"),
		KafkaGroup:     getEnv("KAFKA_GROUP", "propagate"),
		Compression:    getEnv("COMPRESSION", "nop"),
		SchemaPath:     os.Getenv("SCHEMA_PATH"),
		HttpPort:       getEnv("HTTP_PORT", "4021"),
		Concurrency:    getInt("CONCURRENCY", 16),
		RepairSchedule: os.Getenv("REPAIR_SCHEDULE"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	level, err := logrus.ParseLevel(cnf.LogLevel)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", cnf.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return cnf
}

// OpenDb opens the configured database.
func OpenDb(cnf *Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cnf.DbType {
	case "postgres":
		if cnf.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for postgres")
		}
		return gorm.Open(postgres.Open(cnf.DatabaseURL), gormConfig)
	case "sqlite", "":
		if dir := dirOf(cnf.SqlitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "create %s", dir)
			}
		}
		db, err := gorm.Open(sqlite.Open(cnf.SqlitePath+"?_busy_timeout=5000"), gormConfig)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, errors.Errorf("unknown DB_TYPE: %s", cnf.DbType)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("invalid %s %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("invalid %s %q, using %s", key, value, fallback)
		return fallback
	}
	return d
}

func dirOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return ""
	}
	return path[:i]
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Retention RetentionConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and parameterizes the Store Gateway's dialect.
// Type is one of "sqlite", "mysql", "postgres" (spec.md §6 names only
// sqlite/mysql; postgres is carried per DESIGN.md/SPEC_FULL.md's DOMAIN
// STACK note since the teacher's schema is Postgres-shaped).
type DatabaseConfig struct {
	Type               string
	Path               string // sqlite
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	MaxLifetimeMinutes int
	LogLevel           string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SchedulerConfig struct {
	WorkerCount      int
	HeartbeatSeconds int
	LockTTLSeconds   int
	Timezone         string
}

// RetentionConfig configures the Retention Sweeper (spec.md §4.6).
type RetentionConfig struct {
	Days          int
	CleanupOnBoot bool
	SweepCron     string
}

func LoadConfig() *Config {
	cfg, _ := Load()
	return cfg
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 4000),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Type:               getEnv("DB_TYPE", "sqlite"),
			Path:               getEnv("DB_PATH", "scheduler.db"),
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USERNAME", "scheduler_user"),
			Password:           getEnv("DB_PASSWORD", "scheduler_password"),
			Name:               getEnv("DB_DATABASE", "scheduler_db"),
			SSLMode:            getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetimeMinutes: getEnvInt("DB_MAX_LIFETIME_MINS", 30),
			LogLevel:           getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 2),
		},
		Scheduler: SchedulerConfig{
			WorkerCount:      getEnvInt("SCHEDULER_WORKER_COUNT", 10),
			HeartbeatSeconds: getEnvInt("SCHEDULER_HEARTBEAT_SECONDS", 30),
			LockTTLSeconds:   getEnvInt("SCHEDULER_LOCK_TTL_SECONDS", 90),
			Timezone:         getEnv("TZ", "UTC"),
		},
		Retention: RetentionConfig{
			Days:          getEnvInt("LOG_RETENTION_DAYS", 3),
			CleanupOnBoot: getEnvBool("LOG_CLEANUP_ENABLED", true),
			SweepCron:     getEnv("RETENTION_SWEEP_CRON", "0 0 * * *"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

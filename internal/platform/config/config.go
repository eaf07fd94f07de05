package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	strutil "auditkit/pkg/platform/strings"
)

// Server captures process level configuration for the audit host.
type Server struct {
	Addr            string
	Scope           string
	LogLevel        string
	ShutdownTimeout time.Duration
	DatabaseURL     string

	Audit AuditConfig
	Kafka KafkaConfig
	Redis RedisConfig
}

// AuditConfig tunes the default publisher and sink health tracking.
type AuditConfig struct {
	AsyncBuffer      int
	BreakerThreshold int
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// RedisConfig enables the Redis stream sink when URL is non-empty.
type RedisConfig struct {
	URL          string
	Stream       string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables, loading a .env
// file first when one is present.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{
		Addr:            getString("AUDIT_ADDR", ":8080"),
		Scope:           getString("AUDIT_SCOPE", "auditkit"),
		LogLevel:        getString("AUDIT_LOG_LEVEL", "info"),
		ShutdownTimeout: getDuration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
		DatabaseURL:     os.Getenv("AUDIT_DATABASE_URL"),
		Audit: AuditConfig{
			AsyncBuffer:      getInt("AUDIT_ASYNC_BUFFER", 0),
			BreakerThreshold: getInt("AUDIT_BREAKER_THRESHOLD", 5),
		},
		Kafka: KafkaConfig{
			Brokers: getList("AUDIT_KAFKA_BROKERS"),
			Topic:   getString("AUDIT_KAFKA_TOPIC", "audit-events"),
			Group:   getString("AUDIT_KAFKA_GROUP", ""),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("AUDIT_REDIS_URL"),
			Stream:       getString("AUDIT_REDIS_STREAM", "audit-events"),
			PoolSize:     getInt("AUDIT_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("AUDIT_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("AUDIT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("AUDIT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("AUDIT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	if cfg.Audit.AsyncBuffer < 0 {
		return Server{}, fmt.Errorf("AUDIT_ASYNC_BUFFER must not be negative, got %d", cfg.Audit.AsyncBuffer)
	}
	if cfg.Audit.BreakerThreshold <= 0 {
		return Server{}, fmt.Errorf("AUDIT_BREAKER_THRESHOLD must be positive, got %d", cfg.Audit.BreakerThreshold)
	}
	if cfg.Kafka.Group != "" && cfg.DatabaseURL == "" {
		return Server{}, fmt.Errorf("AUDIT_KAFKA_GROUP requires AUDIT_DATABASE_URL to materialize events")
	}
	return cfg, nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string) []string {
	return strutil.SplitList(os.Getenv(key))
}

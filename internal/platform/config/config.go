// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"kindred/internal/match"
	pstrings "kindred/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Match       match.Config
}

// RedisConfig holds the review-queue connection settings. An empty URL means
// flags stay in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit trail settings. Empty brokers disable audit
// publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables. Matching knobs
// fall back to the engine defaults when unset.
func FromEnv() Server {
	cfg := Server{
		Addr:        envOr("MATCHD_ADDR", ":8080"),
		PostgresURL: os.Getenv("MATCHD_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("MATCHD_REDIS_URL"),
			PoolSize:     envInt("MATCHD_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MATCHD_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: envOr("MATCHD_KAFKA_AUDIT_TOPIC", "kindred.audit"),
		},
		Match: matchFromEnv(),
	}
	if brokers := os.Getenv("MATCHD_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = pstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func matchFromEnv() match.Config {
	mc := match.DefaultConfig()
	mc.NameWeight = envFloat("MATCHD_WEIGHT_NAME", mc.NameWeight)
	mc.DOBWeight = envFloat("MATCHD_WEIGHT_DOB", mc.DOBWeight)
	mc.PhoneWeight = envFloat("MATCHD_WEIGHT_PHONE", mc.PhoneWeight)
	mc.EmailWeight = envFloat("MATCHD_WEIGHT_EMAIL", mc.EmailWeight)
	mc.HighThreshold = envFloat("MATCHD_THRESHOLD_HIGH", mc.HighThreshold)
	mc.MediumThreshold = envFloat("MATCHD_THRESHOLD_MEDIUM", mc.MediumThreshold)
	mc.LowThreshold = envFloat("MATCHD_THRESHOLD_LOW", mc.LowThreshold)
	mc.MinReportScore = envFloat("MATCHD_MIN_REPORT_SCORE", mc.MinReportScore)
	mc.LocaleFolding = os.Getenv("MATCHD_LOCALE_FOLDING") == "true"
	if strategy := os.Getenv("MATCHD_BLOCKING_STRATEGY"); strategy != "" {
		mc.BlockingStrategy = match.BlockingStrategy(strategy)
	}
	mc.NamePrefixLength = envInt("MATCHD_NAME_PREFIX_LENGTH", mc.NamePrefixLength)
	mc.CatchAllLimit = envInt("MATCHD_CATCH_ALL_LIMIT", mc.CatchAllLimit)
	mc.Workers = envInt("MATCHD_WORKERS", mc.Workers)
	if policy := os.Getenv("MATCHD_RERUN_POLICY"); policy != "" {
		mc.RerunPolicy = match.RerunPolicy(policy)
	}
	return mc
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

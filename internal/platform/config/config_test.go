package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kindred/internal/match"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "kindred.audit", cfg.Kafka.Topic)
	assert.Equal(t, match.BlockingAll, cfg.Match.BlockingStrategy)
	assert.Equal(t, match.DefaultConfig().NamePrefixLength, cfg.Match.NamePrefixLength)
}

func TestFromEnvMatchOverrides(t *testing.T) {
	t.Setenv("MATCHD_BLOCKING_STRATEGY", "phone-suffix")
	t.Setenv("MATCHD_NAME_PREFIX_LENGTH", "6")
	t.Setenv("MATCHD_WORKERS", "8")

	cfg := FromEnv()

	assert.Equal(t, match.BlockingPhoneSuffix, cfg.Match.BlockingStrategy)
	assert.Equal(t, 6, cfg.Match.NamePrefixLength)
	assert.Equal(t, 8, cfg.Match.Workers)
}

func TestFromEnvKafkaBrokers(t *testing.T) {
	t.Setenv("MATCHD_KAFKA_BROKERS", "broker-1:9092, broker-2:9092,broker-1:9092")

	cfg := FromEnv()

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
}

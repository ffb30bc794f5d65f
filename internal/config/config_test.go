package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 500, cfg.MaxPageSize)
	assert.False(t, cfg.UseKafka)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("USE_KAFKA", "true")
	t.Setenv("OUTBOX_PERIOD", "250ms")
	t.Setenv("MAX_PAGE_SIZE", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.UseKafka)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPeriod)
	assert.Equal(t, 50, cfg.MaxPageSize)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "oracle")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "unsupported driver")

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("OUTBOX_LIMIT", "many")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "OUTBOX_LIMIT")
}

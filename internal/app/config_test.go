package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadEnv(t *testing.T) (*Config, error) {
	t.Helper()
	return loadConfig(aconfig.Config{
		EnvPrefix: "INVENTORY",
		SkipFiles: true,
		SkipFlags: true,
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadEnv(t)
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.True(t, cfg.Seed)
	assert.EqualValues(t, 1<<20, cfg.MaxBodySize)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "inventory.orders", cfg.Kafka.Topic)
	assert.Equal(t, 10*time.Millisecond, cfg.Kafka.BatchTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("INVENTORY_STORAGE", "postgres")
	t.Setenv("INVENTORY_DATABASE_URL", "postgres://localhost/inventory")
	t.Setenv("INVENTORY_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := loadEnv(t)
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "postgres://localhost/inventory", cfg.DatabaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("INVENTORY_STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg, err := loadEnv(t)
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_PortDoesNotOverrideAddr(t *testing.T) {
	t.Setenv("INVENTORY_ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9000")

	cfg, err := loadEnv(t)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Storage: StorageMemory}},
		{name: "postgres", cfg: Config{Storage: StoragePostgres, DatabaseURL: "postgres://x"}},
		{name: "postgres without url", cfg: Config{Storage: StoragePostgres}, wantErr: "database URL is required"},
		{name: "unknown storage", cfg: Config{Storage: "redis"}, wantErr: `unknown storage "redis"`},
		{name: "negative rate", cfg: Config{Storage: StorageMemory, RateLimit: RateLimitConfig{RPS: -1}}, wantErr: "rate limit"},
		{
			name:    "brokers without topic",
			cfg:     Config{Storage: StorageMemory, Kafka: KafkaConfig{Brokers: []string{"k:9092"}}},
			wantErr: "kafka topic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:             "10000",
		Timezone:         "Asia/Seoul",
		DataDir:          "/data",
		StateBackend:     StateBackendSQLite,
		Notify:           NotifyConfig{Interval: 15 * time.Minute, DeadlineDays: 3},
		Line:             LineConfig{Delivery: LineDeliveryBroadcast},
		SentrySampleRate: 1,
		R2:               R2Config{LockTTL: time.Minute, SnapshotInterval: time.Hour},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("NOTIFY_INTERVAL", "")
	t.Setenv("STATE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, 15*time.Minute, cfg.Notify.Interval)
	assert.Equal(t, 3, cfg.Notify.DeadlineDays)
	assert.Equal(t, StateBackendSQLite, cfg.StateBackend)
	assert.True(t, cfg.SeedSamples)
	assert.False(t, cfg.HasLine())
	assert.False(t, cfg.HasAdmin())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/agri")
	t.Setenv("NOTIFY_INTERVAL", "30m")
	t.Setenv("NOTIFY_REQUIRE_OPT_IN", "true")
	t.Setenv("LINE_CHANNEL_TOKEN", "token")
	t.Setenv("LINE_CHANNEL_SECRET", "secret")
	t.Setenv("LINE_DELIVERY", "FOLLOWERS")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Notify.Interval)
	assert.True(t, cfg.Notify.RequireOptIn)
	assert.True(t, cfg.HasLine())
	assert.Equal(t, LineDeliveryFollowers, cfg.Line.Delivery)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "/srv/agri/subsidy.db", cfg.SQLitePath())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(*Config)
		mode        ValidationMode
		errContains string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:        "redis without url",
			mutate:      func(c *Config) { c.StateBackend = StateBackendRedis },
			errContains: "REDIS_URL",
		},
		{
			name:        "unknown backend",
			mutate:      func(c *Config) { c.StateBackend = "etcd" },
			errContains: "STATE_BACKEND",
		},
		{
			name:        "interval too short",
			mutate:      func(c *Config) { c.Notify.Interval = time.Second },
			errContains: "NOTIFY_INTERVAL",
		},
		{
			name:   "interval ignored for tools",
			mutate: func(c *Config) { c.Notify.Interval = 0; c.Port = "" },
			mode:   ToolMode,
		},
		{
			name:        "half line credentials",
			mutate:      func(c *Config) { c.Line.ChannelToken = "t" },
			errContains: "LINE_CHANNEL_TOKEN",
		},
		{
			name:        "plain admin password",
			mutate:      func(c *Config) { c.AdminPasswordHash = "hunter2" },
			errContains: "argon2id",
		},
		{
			name:        "r2 incomplete",
			mutate:      func(c *Config) { c.R2.Enabled = true; c.R2.BucketName = "b" },
			errContains: "R2_ACCOUNT_ID",
		},
		{
			name:        "bad timezone",
			mutate:      func(c *Config) { c.Timezone = "Mars/Olympus" },
			errContains: "TIMEZONE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.ValidateForMode(tt.mode)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidateJoinsAllProblems(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Port = ""
	cfg.DataDir = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT is required")
	assert.Contains(t, err.Error(), "DATA_DIR is required")
}

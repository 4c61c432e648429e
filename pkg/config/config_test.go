package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "flat", cfg.Ledger.Strategy)
	assert.False(t, cfg.Ledger.RequireValidatedSales)
	assert.Equal(t, 60*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.App.IsDevelopment())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("LEDGER_STRATEGY", "Hierarchical")
	v.Set("LEDGER_REQUIRE_VALIDATED_SALES", "true")
	v.Set("MONITOR_INTERVAL", "15s")
	v.Set("MONITOR_WATCH", "12:3:1,15:4")
	v.Set("HTTP_PORT", "9090")
	v.Set("REDIS_ADDR", "localhost:6379")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "hierarchical", cfg.Ledger.Strategy)
	assert.True(t, cfg.Ledger.RequireValidatedSales)
	assert.Equal(t, 15*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, "12:3:1,15:4", cfg.Monitor.Watch)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.True(t, cfg.Redis.Enabled())
}

func TestFromViper_RejectsUnknownStrategy(t *testing.T) {
	v := viper.New()
	v.Set("LEDGER_STRATEGY", "tree")

	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "gest", Password: "p@ss", DBName: "gestock", SSLMode: "disable"}
	assert.Equal(t, "postgres://gest:p%40ss@db:5432/gestock?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://other"
	assert.Equal(t, "postgres://other", c.ConnectionString())
}

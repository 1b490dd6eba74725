package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse-ai/tradepulse/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "tradepulse",
		Password: "secret",
		DBName:   "tradepulse",
		SSLMode:  "require",
	}

	poolCfg, err := PoolConfig(cfg)
	require.NoError(t, err)

	conn := poolCfg.ConnConfig
	assert.Equal(t, "db.internal", conn.Host)
	assert.Equal(t, uint16(5433), conn.Port)
	assert.Equal(t, "tradepulse", conn.User)
	assert.Equal(t, "tradepulse", conn.Database)

	assert.Equal(t, int32(poolMaxConns), poolCfg.MaxConns)
	assert.Equal(t, int32(poolMinConns), poolCfg.MinConns)
	assert.Equal(t, poolMaxConnIdleTime, poolCfg.MaxConnIdleTime)
}

func TestPoolConfig_InvalidInput(t *testing.T) {
	_, err := PoolConfig(config.DatabaseConfig{Host: "bad host with spaces", SSLMode: "???"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database configuration")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[server]
port = 9090

[http]
timeout_sec = 5
debug_log_raw = true

[database]
enabled = true
type = postgresql
host = localhost
port = 5432
user = ct
password = hunter2
database = ct_system

[logging]
level = DEBUG
mode = modular
dir = /tmp/ct

[exchange.bibox]
api_key = abcdef123
secret = s3cr3t

[exchange.EQONEX]
api_key = k
secret = s
uid = 42
sandbox = true
`

func TestLoadConfigData(t *testing.T) {
	cfg, err := LoadConfigData([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.HTTP.TimeoutSec)
	assert.True(t, cfg.HTTP.DebugLogRaw)
	assert.True(t, cfg.HTTP.EnableRateLimit)
	assert.Equal(t, 3600, cfg.HTTP.MarketsTTLSec)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "modular", cfg.Logging.Mode)

	assert.Equal(t, []string{"bibox", "eqonex"}, cfg.ExchangeIDs())
	eq := cfg.Exchange("Eqonex")
	assert.Equal(t, "42", eq.UID)
	assert.True(t, eq.Sandbox)
	assert.True(t, eq.HasCredentials())
	assert.False(t, eq.GenerateClientOrderID)

	missing := cfg.Exchange("qtrade")
	assert.Equal(t, "qtrade", missing.ID)
	assert.False(t, missing.HasCredentials())

	require.NoError(t, Validate(cfg))
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = WARN\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.HTTP.TimeoutSec)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "global", cfg.Logging.Mode)
	assert.Empty(t, cfg.Exchanges)
	require.NoError(t, Validate(cfg))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.conf"))
	assert.Error(t, err)
}

func TestGetConfigForLoggingMasksSecrets(t *testing.T) {
	cfg, err := LoadConfigData([]byte(sampleConfig))
	require.NoError(t, err)

	masked := GetConfigForLogging(cfg)
	assert.Equal(t, "*****", masked.Database.Password)
	assert.Equal(t, "abcd*****", masked.Exchanges["bibox"].APIKey)
	assert.Equal(t, "*****", masked.Exchanges["bibox"].Secret)
	assert.Equal(t, "*****", masked.Exchanges["eqonex"].APIKey)

	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, "s3cr3t", cfg.Exchanges["bibox"].Secret)
	assert.Nil(t, GetConfigForLogging(nil))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfigData([]byte(sampleConfig))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Database.Type = "oracle"
	assert.ErrorContains(t, Validate(cfg), "not supported")

	cfg = base()
	cfg.Database.Host = ""
	assert.ErrorContains(t, Validate(cfg), "database.host")

	cfg = base()
	cfg.Database.Enabled = false
	cfg.Database.Host = ""
	assert.NoError(t, Validate(cfg))

	cfg = base()
	cfg.Server.Port = 70000
	assert.ErrorContains(t, Validate(cfg), "server.port")

	cfg = base()
	cfg.Logging.Mode = "syslog"
	assert.ErrorContains(t, Validate(cfg), "logging.mode")

	cfg = base()
	cfg.Exchanges["qtrade"] = ExchangeConfig{ID: "qtrade", Secret: "x"}
	assert.ErrorContains(t, Validate(cfg), "exchange.qtrade")

	assert.Error(t, Validate(nil))
}

func TestExchangeClientOrderIDOption(t *testing.T) {
	cfg, err := LoadConfigData([]byte("[exchange.delta]\napi_key = k\nsecret = s\ngenerate_client_order_id = true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Exchange("delta").GenerateClientOrderID)
}

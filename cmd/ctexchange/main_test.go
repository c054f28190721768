package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ct-exchange/internal/config"
	"ct-exchange/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	db.DBDriver
	rows map[string]*db.Exchange
}

func (f *fakeDriver) GetExchangeByName(ctx context.Context, name string) (*db.Exchange, error) {
	if ex, ok := f.rows[name]; ok {
		return ex, nil
	}
	return nil, db.ErrExchangeNotFound
}

func valid(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func TestMergeStoredCredentials(t *testing.T) {
	driver := &fakeDriver{rows: map[string]*db.Exchange{
		"bibox": {Name: "bibox", Active: true, ApiKey: valid("db-key"), ApiSecret: valid("db-secret"), BaseUrl: valid("https://proxy.local")},
		"delta": {Name: "delta", Active: false},
	}}
	ctx := context.Background()

	got, err := mergeStoredCredentials(ctx, driver, config.ExchangeConfig{ID: "bibox", APIKey: "file-key"})
	require.NoError(t, err)
	assert.Equal(t, "db-key", got.APIKey)
	assert.Equal(t, "db-secret", got.Secret)
	assert.Equal(t, "https://proxy.local", got.BaseURL)

	got, err = mergeStoredCredentials(ctx, driver, config.ExchangeConfig{ID: "qtrade", APIKey: "file-key"})
	require.NoError(t, err)
	assert.Equal(t, "file-key", got.APIKey)

	_, err = mergeStoredCredentials(ctx, driver, config.ExchangeConfig{ID: "delta"})
	assert.Error(t, err)
}

func TestBuildOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.TimeoutSec = 7
	cfg.HTTP.MarketsTTLSec = 60
	cfg.HTTP.DebugLogRaw = true

	opts := buildOptions(cfg, config.ExchangeConfig{ID: "delta", Sandbox: true, GenerateClientOrderID: true})
	assert.Equal(t, 7*time.Second, opts.Timeout)
	assert.Equal(t, time.Minute, opts.MarketsTTL)
	assert.True(t, opts.Sandbox)
	assert.True(t, opts.DebugLogRaw)
	assert.True(t, opts.GenerateClientOrderID)

	creds := credentials(config.ExchangeConfig{APIKey: "k", Secret: "s", UID: "42"})
	assert.Equal(t, "42", creds.UID)
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	old := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = old })
}

func TestConfigReadTOML(t *testing.T) {
	writeConfig(t, "config.toml", `
ListenAddress = "0.0.0.0:9000"
Secret = "s3cret"
TokenDecimals = 6
TokenSymbol = "TEST"
QuoteDuration = "10m"
MaxTerms = 12
AllowedOrigins = ["https://dashboard.example"]
`)
	t.Setenv("ROFLAMOUNTS_TOKENSYMBOL", "ENV")

	var c Config
	require.NoError(t, c.Read())
	assert.Equal(t, "0.0.0.0:9000", c.ListenAddress)
	assert.Equal(t, "s3cret", c.Secret)
	assert.Equal(t, int32(6), c.TokenDecimals)
	assert.Equal(t, "ENV", c.TokenSymbol)
	assert.Equal(t, 10*time.Minute, c.QuoteDuration)
	assert.Equal(t, "12", c.MaxTerms.String())
	assert.Equal(t, []string{"https://dashboard.example"}, c.AllowedOrigins)
	// Defaults are kept for missing keys.
	assert.Equal(t, DefaultConfig.RateLimit, c.RateLimit)
	assert.Equal(t, DefaultConfig.CoinmarketcapCoinID, c.CoinmarketcapCoinID)
}

func TestConfigReadYAML(t *testing.T) {
	writeConfig(t, "config.yaml", `
MaxTerms: 2.5
CoinmarketcapCacheDuration: 30s
`)

	var c Config
	require.NoError(t, c.Read())
	assert.Equal(t, "2.5", c.MaxTerms.String())
	assert.Equal(t, 30*time.Second, c.CoinmarketcapCacheDuration)
	assert.Equal(t, int32(18), c.TokenDecimals)
}

func TestConfigReadMissingFile(t *testing.T) {
	old := *configPath
	*configPath = filepath.Join(t.TempDir(), "missing.toml")
	defer func() { *configPath = old }()

	var c Config
	assert.Error(t, c.Read())
}

func TestEnvToKey(t *testing.T) {
	assert.Equal(t, "AdminPassword", envToKey("ROFLAMOUNTS_ADMINPASSWORD"))
	assert.Equal(t, "UNKNOWN", envToKey("ROFLAMOUNTS_UNKNOWN"))
}

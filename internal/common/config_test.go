package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "CAD", cfg.ReportingCurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 1.38535, cfg.FX.FallbackRates["USD"])
	assert.Equal(t, 1000.0, cfg.Reconcile.Tolerance)
	assert.False(t, cfg.Reconcile.AllowAdjustment)
	assert.Equal(t, []string{"CASH"}, cfg.Dedupe.PlaceholderSymbols)
	assert.Equal(t, 4, cfg.Classify.Concurrency)
}

func TestLoadConfig_MergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
reporting_currency = "usd"

[server]
port = 9000

[reconcile]
tolerance = 250.0
`), 0o644))
	require.NoError(t, os.WriteFile(local, []byte(`
[server]
port = 9100

[[rules]]
name = "equity"
bucket = "Equity"
scope = "holding"
`), 0o644))

	cfg, err := LoadConfig(base, local, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.ReportingCurrency)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 250.0, cfg.Reconcile.Tolerance)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "Equity", cfg.Rules[0].Bucket)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport ="), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RECON_PORT", "9999")
	t.Setenv("RECON_TOLERANCE", "500")
	t.Setenv("RECON_STORAGE_BACKEND", "surrealdb")
	t.Setenv("EODHD_API_KEY", "eod-key")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("RECON_REPORTING_CURRENCY", "usd")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 500.0, cfg.Reconcile.Tolerance)
	assert.Equal(t, "surrealdb", cfg.Storage.Backend)
	assert.Equal(t, "eod-key", cfg.Clients.EODHD.APIKey)
	assert.Equal(t, "gem-key", cfg.Clients.Gemini.APIKey)
	assert.Equal(t, "USD", cfg.ReportingCurrency)
}

func TestApplyEnvOverrides_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RECON_PORT", "not-a-port")
	t.Setenv("RECON_CONCURRENCY", "many")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Classify.Concurrency)
}

func TestTimeouts(t *testing.T) {
	c := ClassifyConfig{LookupTimeout: "bogus"}
	assert.Equal(t, "15s", c.GetLookupTimeout().String())

	e := EODHDConfig{Timeout: "5s"}
	assert.Equal(t, "5s", e.GetTimeout().String())
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Environment: " Prod "}).IsProduction())
	assert.False(t, (&Config{Environment: "development"}).IsProduction())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const baseYAML = `
database:
  postgres:
    host: localhost
    database: storefront
    user: storefront
geocoding:
  open:
    user_agent: "storefront-services/1.0 (ops@example.com)"
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.Catalog.Backend)
	assert.Equal(t, 12, cfg.Catalog.PageSize)
	assert.Equal(t, SourcePostgres, cfg.Locator.Source)
	assert.Equal(t, 3959.0, cfg.Locator.EarthRadiusMi)
	assert.Equal(t, 1100*time.Millisecond, GetDuration(cfg.Geocoding.RequestDelay))
	assert.Equal(t, 10*time.Second, GetDuration(cfg.Geocoding.Timeout))
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "storefront-services", cfg.Observability.ServiceName)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_GEOCODER_KEY", "secret-key")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML+`
  keyed:
    api_key: "${TEST_GEOCODER_KEY}"
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Geocoding.Keyed.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "unknown catalog backend",
			body: baseYAML + `
catalog:
  backend: solr
`,
			wantErr: "catalog.backend",
		},
		{
			name: "elasticsearch backend without address",
			body: baseYAML + `
catalog:
  backend: elasticsearch
`,
			wantErr: "database.elasticsearch",
		},
		{
			name: "file source without path",
			body: baseYAML + `
locator:
  source: file
`,
			wantErr: "locator.file",
		},
		{
			name: "missing user agent",
			body: `
database:
  postgres:
    host: localhost
    database: storefront
    user: storefront
`,
			wantErr: "user_agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Defaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"geocode-stores": {Enabled: false, Timeout: 1000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "geocode-stores"))
	assert.True(t, IsWorkerEnabled(cfg, "deliver-inquiry"))
	assert.Equal(t, 1000, GetWorkerConfig(cfg, "geocode-stores").Timeout)
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "deliver-inquiry").Timeout)
}

func TestLoadFromFile_ShippedConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Zero(t, cfg.Catalog.PageCacheTTL)
	assert.Equal(t, BackendPostgres, cfg.Catalog.Backend)
	assert.True(t, cfg.Locator.WriteBack)
	assert.Equal(t, 30*24*time.Hour, GetDuration(cfg.Geocoding.CacheTTL))
	assert.Equal(t, 1, GetWorkerConfig(cfg, "geocode-stores").MaxJobsActive)
	assert.False(t, cfg.Notifications.Email.Enabled)
}

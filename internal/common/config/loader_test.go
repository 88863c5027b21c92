// internal/common/config/loader_test.go
package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/models"
)

const baseYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: iluma
    user: ${TEST_DB_USER}
  redis:
    address: localhost:6379
workers:
  score-business:
    enabled: false
intelligence:
  weights:
    seo: 2
    conversion: 1
  perfecto_max: 5
  compensatorio_max: 20
  cluster_radius_meters: -1
  parallelism: 8
  top_n: 3
  slow_operation_ms: 250
  cache:
    enabled: true
    backend: redis
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_DB_USER", "iluma_app")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "iluma_app", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, SourcePostgres, cfg.Sources.Profiles)
	assert.Equal(t, "business_profiles", cfg.Sources.Index)
	assert.Equal(t, 15*time.Minute, cfg.Intelligence.Cache.TTL())
	assert.Equal(t, "iluma-intelligence", cfg.Observability.ServiceName)

	assert.False(t, IsWorkerEnabled(cfg, "score-business"))
	assert.True(t, IsWorkerEnabled(cfg, "cluster-businesses"))
	wc := GetWorkerConfig(cfg, "score-business")
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 30000, wc.Timeout)
	assert.Equal(t, 3, wc.MaxRetries)
}

func TestEngineConfig(t *testing.T) {
	t.Setenv("TEST_DB_USER", "iluma_app")
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	ec, err := cfg.Intelligence.EngineConfig()
	require.NoError(t, err)

	assert.Equal(t, 2.0, ec.Scoring.Weights[models.MetricSEO])
	assert.Equal(t, 1.0, ec.Scoring.Weights[models.MetricConversion])
	_, hasContent := ec.Scoring.Weights[models.MetricContent]
	assert.False(t, hasContent)
	assert.Equal(t, 5, ec.Matching.PerfectoMax)
	assert.Equal(t, 20, ec.Matching.CompensatorioMax)
	assert.Equal(t, 8, ec.Matching.Parallelism)
	assert.Equal(t, 8, ec.Clustering.Parallelism)
	assert.True(t, math.IsInf(ec.Clustering.RadiusMeters, 1))
	assert.Equal(t, 3, ec.TopN)
	assert.Equal(t, 250*time.Millisecond, ec.SlowOperation)

	_, err = intelligence.NewEngine(ec)
	assert.NoError(t, err)
}

func TestEngineConfigDefaults(t *testing.T) {
	ec, err := IntelligenceConfig{}.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, intelligence.DefaultConfig().Scoring.Weights, ec.Scoring.Weights)
	assert.Equal(t, 5000.0, ec.Clustering.RadiusMeters)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing broker",
			yaml:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name: "unknown weight",
			yaml: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n" +
				"intelligence:\n  weights:\n    traffic: 1\n",
			wantErr: "unknown metric",
		},
		{
			name: "elasticsearch source without addresses",
			yaml: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n" +
				"sources:\n  profiles: elasticsearch\n",
			wantErr: "database.elasticsearch.addresses or url is required",
		},
		{
			name: "unknown source",
			yaml: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n" +
				"sources:\n  profiles: mongo\n",
			wantErr: "sources.profiles must be one of",
		},
		{
			name: "redis cache without address",
			yaml: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n" +
				"intelligence:\n  cache:\n    enabled: true\n    backend: redis\n",
			wantErr: "database.redis.address is required",
		},
		{
			name: "email notifications without recipients",
			yaml: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n" +
				"notifications:\n  enabled: true\n  from_email: a@b.c\n",
			wantErr: "notifications.recipients is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadIntelligence(t *testing.T) {
	ic, err := LoadIntelligence(writeConfig(t, `
intelligence:
  perfecto_max: 5
  top_n: 7
`))
	require.NoError(t, err)
	assert.Equal(t, 5, ic.PerfectoMax)
	assert.Equal(t, 7, ic.TopN)

	_, err = LoadIntelligence(writeConfig(t, `
intelligence:
  weights:
    bogus: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	_, err = LoadIntelligence(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

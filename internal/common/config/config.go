// internal/common/config/config.go
package config

import (
	"fmt"
	"math"
	"time"

	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/intelligence/scoring"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Intelligence  IntelligenceConfig      `mapstructure:"intelligence"`
	Sources       SourcesConfig           `mapstructure:"sources"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	// Migrate creates the business_profiles and score_snapshots tables on startup.
	Migrate        bool   `mapstructure:"migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// --- Intelligence Engine ---

// IntelligenceConfig holds the tunables of the scoring, matching, clustering
// and reporting engine.
type IntelligenceConfig struct {
	Weights               map[string]float64 `mapstructure:"weights"`
	TrendUpAbove          int                `mapstructure:"trend_up_above"`
	TrendDownBelow        int                `mapstructure:"trend_down_below"`
	PerfectoMax           int                `mapstructure:"perfecto_max"`
	CompensatorioMax      int                `mapstructure:"compensatorio_max"`
	IncludeNotRecommended bool               `mapstructure:"include_not_recommended"`
	ClusterRadiusMeters   float64            `mapstructure:"cluster_radius_meters"`
	TileThreshold         int                `mapstructure:"tile_threshold"`
	Parallelism           int                `mapstructure:"parallelism"`
	TopN                  int                `mapstructure:"top_n"`
	SlowOperationMs       int                `mapstructure:"slow_operation_ms"`
	Cache                 CacheConfig        `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Backend    string `mapstructure:"backend"` // memory | redis
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	Shards     int    `mapstructure:"shards"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// EngineConfig converts the file settings into the engine's configuration.
// Unset values keep the engine defaults; a radius of -1 disables the radius
// limit.
func (c IntelligenceConfig) EngineConfig() (intelligence.Config, error) {
	cfg := intelligence.DefaultConfig()

	if len(c.Weights) > 0 {
		w, err := scoring.ParseWeights(c.Weights)
		if err != nil {
			return intelligence.Config{}, err
		}
		cfg.Scoring.Weights = w
	}
	if c.TrendUpAbove != 0 {
		cfg.Scoring.UpAbove = c.TrendUpAbove
	}
	if c.TrendDownBelow != 0 {
		cfg.Scoring.DownBelow = c.TrendDownBelow
	}

	if c.PerfectoMax != 0 {
		cfg.Matching.PerfectoMax = c.PerfectoMax
	}
	if c.CompensatorioMax != 0 {
		cfg.Matching.CompensatorioMax = c.CompensatorioMax
	}
	cfg.Matching.IncludeNotRecommended = c.IncludeNotRecommended

	switch {
	case c.ClusterRadiusMeters == -1:
		cfg.Clustering.RadiusMeters = math.Inf(1)
	case c.ClusterRadiusMeters != 0:
		cfg.Clustering.RadiusMeters = c.ClusterRadiusMeters
	}
	if c.TileThreshold != 0 {
		cfg.Clustering.TileThreshold = c.TileThreshold
	}
	if c.Parallelism > 0 {
		cfg.Matching.Parallelism = c.Parallelism
		cfg.Clustering.Parallelism = c.Parallelism
	}

	if c.TopN > 0 {
		cfg.TopN = c.TopN
	}
	if c.SlowOperationMs > 0 {
		cfg.SlowOperation = GetDuration(c.SlowOperationMs)
	}
	return cfg, nil
}

// --- Collaborators ---

// SourcesConfig selects where business profiles are loaded from.
type SourcesConfig struct {
	Profiles string `mapstructure:"profiles"` // postgres | elasticsearch | file
	Index    string `mapstructure:"index"`
	File     string `mapstructure:"file"`
	// Snapshot lookups are cached in Redis for this many seconds; 0 disables caching.
	SnapshotCacheSeconds int `mapstructure:"snapshot_cache_seconds"`
}

// NotificationConfig holds settings for the notify-opportunities worker.
type NotificationConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	AWSRegion  string   `mapstructure:"aws_region"`
	TopicARN   string   `mapstructure:"topic_arn"`
	FromEmail  string   `mapstructure:"from_email"`
	Recipients []string `mapstructure:"recipients"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

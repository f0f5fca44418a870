package config

// RedisConfig contains configuration for the shared job store and queue.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// DiagnosticsConfig contains configuration for the optional Postgres-backed
// failure diagnostics sink. Leave URL empty to disable capture.
type DiagnosticsConfig struct {
	// URL is the Postgres connection string for the diagnostics database.
	URL string `env:"URL" envDefault:""`
}

// Enabled reports whether diagnostics capture is configured.
func (d DiagnosticsConfig) Enabled() bool {
	return d.URL != ""
}

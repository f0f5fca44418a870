package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Identity provider configuration
//   - database.go: Redis and diagnostics database configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	// Auth configuration
	Auth AuthConfig

	// Store configuration
	Redis       RedisConfig       `envPrefix:"REDIS_"`
	Diagnostics DiagnosticsConfig `envPrefix:"DIAG_DB_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Queue is the single queue jobs are admitted to.
	Queue string `env:"JOB_QUEUE" envDefault:"public"`

	// JobTimeout is the execution timeout stamped on new job records.
	JobTimeout time.Duration `env:"JOB_TIMEOUT" envDefault:"180s"`

	// JobRetention is how long results and failure diagnostics are kept.
	JobRetention time.Duration `env:"JOB_RETENTION" envDefault:"2h"`

	// ReconcileSchedule is the cron schedule for the background orphan sweep.
	ReconcileSchedule string `env:"RECONCILE_SCHEDULE" envDefault:"@every 5m"`

	// Services selects which service modes to run.
	Services string `env:"SERVICES" envDefault:"http"`
}

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReconciler runs the background orphan reconciliation sweep.
	ServiceModeReconciler ServiceMode = "reconciler"
)

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()

	if c.Queue == "" {
		c.Queue = "public"
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 180 * time.Second
	}
	if c.JobRetention <= 0 {
		c.JobRetention = 2 * time.Hour
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsReconcilerEnabled returns true if the background reconciler is enabled.
func (c *AppConfig) IsReconcilerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReconciler]
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeReconciler:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, reconciler)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

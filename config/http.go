package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// MaxConns caps concurrent accepted connections. Zero disables the cap.
	MaxConns int `env:"HTTP_MAX_CONNS" envDefault:"0"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.MaxConns < 0 {
		h.MaxConns = 0
	}
}

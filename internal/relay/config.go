package relay

import (
	"strings"
	"time"
)

// Config is the relay's startup configuration. It is read-only once the
// handler is built.
type Config struct {
	Addr           string
	ClientID       string
	ClientSecret   string
	AllowedOrigins []string
	ReadTimeout    time.Duration

	// RPS and Burst size the per-IP token bucket on the exchange routes.
	// RPS 0 disables rate limiting.
	RPS   float64
	Burst int

	// DeviceProxy enables POST /device/{step}.
	DeviceProxy bool

	// GitHub endpoints. Empty values use github.com.
	TokenURL      string
	DeviceCodeURL string

	// HTTPClient is used for calls to GitHub. Nil uses a client with a 15s
	// timeout.
	HTTPClient HTTPDoer
}

// Default GitHub endpoints.
const (
	DefaultTokenURL      = "https://github.com/login/oauth/access_token"
	DefaultDeviceCodeURL = "https://github.com/login/device/code"
)

// HasCredentials reports whether both the client id and secret are set.
func (c Config) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ParseOrigins splits a comma-separated ALLOWED_ORIGINS value, trimming
// blanks.
func ParseOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c Config) withDefaults() Config {
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.DeviceCodeURL == "" {
		c.DeviceCodeURL = DefaultDeviceCodeURL
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	return c
}

package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// Config is the merchant runtime configuration, resolvable from a
// secrets profile layered under runtime overrides.
type Config struct {
	ServiceName       string   `koanf:"service_name" mapstructure:"service_name"`
	Scope             []string `koanf:"scope" mapstructure:"scope"`
	RedirectURI       string   `koanf:"redirect_uri" mapstructure:"redirect_uri"`
	ApplicationSecret string   `koanf:"application_secret" mapstructure:"application_secret"`
	RequestTimeoutMS  int64    `koanf:"request_timeout_ms" mapstructure:"request_timeout_ms"`
	StateTokenTTLMS   int64    `koanf:"state_token_ttl_ms" mapstructure:"state_token_ttl_ms"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:      "merchant",
		Scope:            DefaultScope().Values(),
		RequestTimeoutMS: defaultRequestTimeout.Milliseconds(),
		StateTokenTTLMS:  DefaultStateTokenTTL.Milliseconds(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if len(NewScopeSet(c.Scope...)) == 0 {
		return fmt.Errorf("core: scope must name at least one capability")
	}
	if redirect := strings.TrimSpace(c.RedirectURI); redirect != "" {
		if _, err := url.Parse(redirect); err != nil {
			return fmt.Errorf("core: parse redirect_uri: %w", err)
		}
	}
	if c.RequestTimeoutMS < 0 {
		return fmt.Errorf("core: request_timeout_ms must not be negative")
	}
	if c.StateTokenTTLMS < 0 {
		return fmt.Errorf("core: state_token_ttl_ms must not be negative")
	}
	return nil
}

// RequestTimeout returns the effective per-call timeout; zero config
// means the default bound, never unbounded.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// StateTokenTTL returns the validity window for anti-forgery tokens.
func (c Config) StateTokenTTL() time.Duration {
	if c.StateTokenTTLMS <= 0 {
		return DefaultStateTokenTTL
	}
	return time.Duration(c.StateTokenTTLMS) * time.Millisecond
}

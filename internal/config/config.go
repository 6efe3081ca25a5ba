package config

import (
	"fmt"
	"strings"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	defaultAPIKey  = "${CALENDLY_API_KEY}"
	defaultListen  = "localhost:8080"
	defaultTimeout = 30
)

type Config struct {
	BaseURL        string           `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey         string           `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TimeoutSeconds int              `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Transport      string           `json:"transport,omitempty" yaml:"transport,omitempty"`
	Listen         string           `json:"listen,omitempty" yaml:"listen,omitempty"`
	Auth           *AuthConfig      `json:"auth,omitempty" yaml:"auth,omitempty"` // inbound HTTP auth
	Filter         *OperationFilter `json:"filter,omitempty" yaml:"filter,omitempty"`
	Audit          AuditConfig      `json:"audit,omitempty" yaml:"audit,omitempty"`
	RateLimit      RateLimitConfig  `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	LogFormat      string           `json:"log_format,omitempty" yaml:"log_format,omitempty"`
	LogLevel       string           `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

type AuthConfig struct {
	Type     string `json:"type" yaml:"type"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`       // bearer
	Username string `json:"username,omitempty" yaml:"username,omitempty"` // basic
	Password string `json:"password,omitempty" yaml:"password,omitempty"` // basic
	Header   string `json:"header,omitempty" yaml:"header,omitempty"`     // api-key header name
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`       // api-key value
}

type AuditConfig struct {
	// Path of the sqlite database. Empty disables the audit log.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// RateLimitConfig paces outbound calls. Zero disables a tier.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
	RequestsPerHour   int `json:"requests_per_hour,omitempty" yaml:"requests_per_hour,omitempty"`
}

func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.APIKey) == "" {
		c.APIKey = defaultAPIKey
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultTimeout
	}
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.RequestsPerHour < 0 {
		return fmt.Errorf("rate_limit values must be >= 0")
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	switch c.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Listen == "" {
			return fmt.Errorf("listen is required for the http transport")
		}
	default:
		return fmt.Errorf("unsupported transport %q (expected stdio or http)", c.Transport)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	if c.Auth != nil {
		if err := c.Auth.Validate(); err != nil {
			return err
		}
	}
	if c.Filter != nil {
		if err := c.Filter.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (a *AuthConfig) Validate() error {
	switch a.Type {
	case "":
		return fmt.Errorf("auth.type is required")
	case "bearer":
		if a.Token == "" {
			return fmt.Errorf("auth.token is required for bearer")
		}
	case "basic":
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("auth.username and auth.password are required for basic")
		}
	case "api-key":
		if a.Header == "" || a.Value == "" {
			return fmt.Errorf("auth.header and auth.value are required for api-key")
		}
	default:
		return fmt.Errorf("unsupported auth.type %q", a.Type)
	}
	return nil
}

// Secrets lists every credential that must never reach logs.
func (c *Config) Secrets() []string {
	var secrets []string
	if c.APIKey != "" && c.APIKey != defaultAPIKey {
		secrets = append(secrets, c.APIKey)
	}
	if c.Auth == nil {
		return secrets
	}
	switch c.Auth.Type {
	case "bearer":
		if c.Auth.Token != "" {
			secrets = append(secrets, c.Auth.Token)
		}
	case "basic":
		if c.Auth.Password != "" {
			secrets = append(secrets, c.Auth.Password)
		}
	case "api-key":
		if c.Auth.Value != "" {
			secrets = append(secrets, c.Auth.Value)
		}
	}
	return secrets
}

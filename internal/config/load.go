package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file. An empty path yields the defaults, which
// take the API key from CALENDLY_API_KEY.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML config bytes, applies defaults, expands env vars, and validates.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.ExpandEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type envField struct {
	name  string
	value *string
}

// ExpandEnv resolves ${VAR} references in every string setting.
func (c *Config) ExpandEnv() error {
	fields := []envField{
		{"base_url", &c.BaseURL},
		{"api_key", &c.APIKey},
		{"listen", &c.Listen},
		{"audit.path", &c.Audit.Path},
	}
	if c.Auth != nil {
		fields = append(fields,
			envField{"auth.token", &c.Auth.Token},
			envField{"auth.username", &c.Auth.Username},
			envField{"auth.password", &c.Auth.Password},
			envField{"auth.value", &c.Auth.Value},
		)
	}
	for _, f := range fields {
		if *f.value == "" {
			continue
		}
		expanded, err := ExpandEnvStrict(*f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}
	return nil
}

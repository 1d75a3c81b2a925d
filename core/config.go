package core

import (
	"fmt"
	"strings"
	"time"
)

type RegistryConfig struct {
	MaxHandles int `koanf:"max_handles" mapstructure:"max_handles"`
}

type AuthConfig struct {
	PendingTTL      time.Duration `koanf:"pending_ttl" mapstructure:"pending_ttl"`
	URIScheme       string        `koanf:"uri_scheme" mapstructure:"uri_scheme"`
	PersistGrants   bool          `koanf:"persist_grants" mapstructure:"persist_grants"`
	EncryptionKeyID string        `koanf:"encryption_key_id" mapstructure:"encryption_key_id"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Registry    RegistryConfig `koanf:"registry" mapstructure:"registry"`
	Auth        AuthConfig     `koanf:"auth" mapstructure:"auth"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "appsession",
		Registry:    RegistryConfig{},
		Auth: AuthConfig{
			PendingTTL:    defaultPendingAuthTTL,
			URIScheme:     DefaultAuthURIScheme,
			PersistGrants: true,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Registry.MaxHandles < 0 {
		return fmt.Errorf("core: registry.max_handles must not be negative")
	}
	if c.Auth.PendingTTL < 0 {
		return fmt.Errorf("core: auth.pending_ttl must not be negative")
	}
	if strings.TrimSpace(c.Auth.URIScheme) == "" {
		return fmt.Errorf("core: auth.uri_scheme is required")
	}
	return nil
}

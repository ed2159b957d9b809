package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/config"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/links"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	cfg := &Config{}
	setDefaults(cfg)
	cfg.Links.Secret = "link-secret"
	return cfg
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.Service.Name != defaultServiceName {
		t.Errorf("service.name: got %q, want %q", cfg.Service.Name, defaultServiceName)
	}
	if cfg.Service.Port != defaultServicePort {
		t.Errorf("service.port: got %d, want %d", cfg.Service.Port, defaultServicePort)
	}
	if cfg.Database.Database != defaultDBName {
		t.Errorf("database.database: got %q, want %q", cfg.Database.Database, defaultDBName)
	}
	if cfg.Redis.LockTTL != defaultLockTTL {
		t.Errorf("redis.lock_ttl: got %v, want %v", cfg.Redis.LockTTL, defaultLockTTL)
	}
	if cfg.Oracle.Provider != defaultOracleProvider {
		t.Errorf("oracle.provider: got %q, want %q", cfg.Oracle.Provider, defaultOracleProvider)
	}
	if cfg.Oracle.Timeout != 10*time.Second {
		t.Errorf("oracle.timeout: got %v", cfg.Oracle.Timeout)
	}
	if cfg.Discovery.MinCommission != defaultMinCommission {
		t.Errorf("discovery.min_commission: got %v", cfg.Discovery.MinCommission)
	}
	if cfg.Discovery.FallbackCommission != defaultFallbackCommission {
		t.Errorf("discovery.fallback_commission: got %v", cfg.Discovery.FallbackCommission)
	}
	if len(cfg.Links.CredentialPlatforms) != len(defaultCredentialPlatforms) {
		t.Errorf("links.credential_platforms: got %v", cfg.Links.CredentialPlatforms)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level: got %q", cfg.Logging.Level)
	}
}

func TestSetDefaults_CredentialPlatformsMatchManager(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if len(cfg.Links.CredentialPlatforms) != len(links.DefaultCredentialPlatforms) {
		t.Fatalf("links.credential_platforms = %v, want %v", cfg.Links.CredentialPlatforms, links.DefaultCredentialPlatforms)
	}
	for i, p := range links.DefaultCredentialPlatforms {
		if cfg.Links.CredentialPlatforms[i] != string(p) {
			t.Errorf("links.credential_platforms[%d] = %q, want %q", i, cfg.Links.CredentialPlatforms[i], p)
		}
	}
	if cfg.Links.GenerateTimeout != links.DefaultGenerateTimeout {
		t.Errorf("links.generate_timeout = %v, want %v", cfg.Links.GenerateTimeout, links.DefaultGenerateTimeout)
	}
}

func TestSetDefaults_KeepsExplicitEmptyCredentialPlatforms(t *testing.T) {
	cfg := &Config{Links: LinksConfig{CredentialPlatforms: []string{}}}
	setDefaults(cfg)

	if len(cfg.Links.CredentialPlatforms) != 0 {
		t.Errorf("expected explicit empty list to survive, got %v", cfg.Links.CredentialPlatforms)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Links.Secret = "" }, "links.secret"},
		{"bad provider", func(c *Config) { c.Oracle.Provider = "llama" }, "oracle.provider"},
		{"commission above one", func(c *Config) { c.Discovery.MinCommission = 1.5 }, "discovery.min_commission"},
		{"bad port", func(c *Config) { c.Service.Port = 70000 }, "service.port"},
		{"no workers", func(c *Config) { c.Links.BatchWorkers = -1 }, "links.batch_workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.edit(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var ve *infraconfig.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field: got %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := "service:\n  port: 9000\noracle:\n  provider: anthropic\nlinks:\n  secret: from-file\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("ORACLE_PROVIDER", "openai")
	t.Setenv("REDIS_ADDRESS", "redis:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Port != 9000 {
		t.Errorf("service.port: got %d, want 9000", cfg.Service.Port)
	}
	if cfg.Oracle.Provider != "openai" {
		t.Errorf("oracle.provider: got %q, want env override", cfg.Oracle.Provider)
	}
	if cfg.Redis.Address != "redis:6380" {
		t.Errorf("redis.address: got %q", cfg.Redis.Address)
	}
	if cfg.Links.Secret != "from-file" {
		t.Errorf("links.secret: got %q", cfg.Links.Secret)
	}
}

func TestOracleConfig_Client(t *testing.T) {
	cfg := validConfig(t)
	cfg.Oracle.Provider = "anthropic"
	cfg.Oracle.APIKey = "sk-test"

	client := cfg.Oracle.Client()
	if client.Provider != "anthropic" || client.APIKey != "sk-test" {
		t.Errorf("unexpected oracle config: %+v", client)
	}
	if client.MaxAttempts != defaultOracleAttempts {
		t.Errorf("max attempts: got %d", client.MaxAttempts)
	}
}

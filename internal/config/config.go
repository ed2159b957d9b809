// Package config holds the affiliate engine's service configuration.
package config

import (
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/config"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/profiling"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/oracle"
)

// Default configuration values.
const (
	defaultServiceName  = "affiliate-engine"
	defaultServicePort  = 8095
	defaultVersion      = "0.1.0"
	defaultDBName       = "affiliate_engine"
	defaultLockPrefix   = "affiliate:link-lock:"
	defaultLockTTL      = 30 * time.Second
	defaultBatchWorkers = 4
	defaultGenerateTTL  = 2 * time.Minute

	defaultOracleProvider  = oracle.ProviderNone
	defaultOracleTimeout   = 10 * time.Second
	defaultOracleMaxTokens = 1024
	defaultOracleRate      = 2.0
	defaultOracleBurst     = 4
	defaultOracleAttempts  = 3
	defaultOracleBackoff   = 500 * time.Millisecond
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second

	defaultMinCommission      = 0.03
	defaultFallbackCommission = 0.04
)

// defaultCredentialPlatforms need a usable credential before an unofficial
// program link can be generated.
var defaultCredentialPlatforms = []string{"amazon", "tiktok", "instagram", "youtube", "pinterest"}

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig              `yaml:"service"`
	Database  infraconfig.DatabaseConfig `yaml:"database"`
	Redis     RedisConfig                `yaml:"redis"`
	Oracle    OracleConfig               `yaml:"oracle"`
	Discovery DiscoveryConfig            `yaml:"discovery"`
	Links     LinksConfig                `yaml:"links"`
	Ads       AdsConfig                  `yaml:"ads"`
	Auth      AuthConfig                 `yaml:"auth"`
	Logging   infraconfig.LoggingConfig  `yaml:"logging"`
	Profiling profiling.Config           `yaml:"profiling"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name           string   `yaml:"name"`
	Version        string   `yaml:"version"`
	Port           int      `env:"AFFILIATE_ENGINE_PORT" yaml:"port"`
	Debug          bool     `env:"APP_DEBUG"             yaml:"debug"`
	CORSOrigins    []string `env:"CORS_ORIGINS"          yaml:"cors_origins"`
	MigrationsPath string   `env:"MIGRATIONS_PATH"       yaml:"migrations_path"`
}

// RedisConfig adds the generation lock settings to the connection settings.
type RedisConfig struct {
	infraconfig.RedisConfig `yaml:",inline"`

	LockPrefix string        `yaml:"lock_prefix"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
}

// OracleConfig selects the language-model provider.
type OracleConfig struct {
	Provider  string        `env:"ORACLE_PROVIDER" yaml:"provider"`
	APIKey    string        `env:"ORACLE_API_KEY"  yaml:"api_key"` //nolint:gosec // provider credential
	Model     string        `env:"ORACLE_MODEL"    yaml:"model"`
	BaseURL   string        `env:"ORACLE_BASE_URL" yaml:"base_url"`
	Timeout   time.Duration `env:"ORACLE_TIMEOUT"  yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`

	RatePerSecond   float64       `yaml:"rate_per_second"`
	Burst           int           `yaml:"burst"`
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// Client returns the oracle factory configuration.
func (c *OracleConfig) Client() oracle.Config {
	return oracle.Config{
		Provider:        c.Provider,
		APIKey:          c.APIKey,
		Model:           c.Model,
		BaseURL:         c.BaseURL,
		MaxTokens:       c.MaxTokens,
		RatePerSecond:   c.RatePerSecond,
		Burst:           c.Burst,
		MaxAttempts:     c.MaxAttempts,
		InitialBackoff:  c.InitialBackoff,
		BreakerFailures: c.BreakerFailures,
		BreakerCooldown: c.BreakerCooldown,
	}
}

// DiscoveryConfig tunes program discovery.
type DiscoveryConfig struct {
	// MinCommission is the rate below which unofficial results get the Amazon fallback.
	MinCommission float64 `yaml:"min_commission"`
	// FallbackCommission is the Amazon Associates rate used when nothing is known.
	FallbackCommission float64 `yaml:"fallback_commission"`
	Static             bool    `env:"DISCOVERY_STATIC" yaml:"static"`
}

// LinksConfig tunes link generation.
type LinksConfig struct {
	Secret              string   `env:"AFFILIATE_LINK_SECRET" yaml:"secret"` //nolint:gosec // HMAC key
	CredentialPlatforms []string `yaml:"credential_platforms"`
	BatchWorkers        int      `yaml:"batch_workers"`
	// GenerateTimeout bounds one shared generation. It runs detached from
	// the caller that started it.
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
}

// AdsConfig tunes ad analysis and copy.
type AdsConfig struct {
	Static bool `env:"ADS_STATIC" yaml:"static"`
}

// AuthConfig protects /api/v1 when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"` //nolint:gosec // signing key
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	cfg.Database.SetDefaults()
	if cfg.Database.Database == "" {
		cfg.Database.Database = defaultDBName
	}
	setRedisDefaults(&cfg.Redis)
	setOracleDefaults(&cfg.Oracle)
	setDiscoveryDefaults(&cfg.Discovery)
	setLinksDefaults(&cfg.Links)
	cfg.Logging.SetDefaults()
	cfg.Profiling.SetDefaults()
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
	if svc.MigrationsPath == "" {
		svc.MigrationsPath = "migrations"
	}
}

func setRedisDefaults(r *RedisConfig) {
	r.SetDefaults()
	if r.LockPrefix == "" {
		r.LockPrefix = defaultLockPrefix
	}
	if r.LockTTL == 0 {
		r.LockTTL = defaultLockTTL
	}
}

func setOracleDefaults(o *OracleConfig) {
	if o.Provider == "" {
		o.Provider = defaultOracleProvider
	}
	if o.Timeout == 0 {
		o.Timeout = defaultOracleTimeout
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = defaultOracleMaxTokens
	}
	if o.RatePerSecond == 0 {
		o.RatePerSecond = defaultOracleRate
	}
	if o.Burst == 0 {
		o.Burst = defaultOracleBurst
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = defaultOracleAttempts
	}
	if o.InitialBackoff == 0 {
		o.InitialBackoff = defaultOracleBackoff
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = defaultBreakerFailures
	}
	if o.BreakerCooldown == 0 {
		o.BreakerCooldown = defaultBreakerCooldown
	}
}

func setDiscoveryDefaults(d *DiscoveryConfig) {
	if d.MinCommission == 0 {
		d.MinCommission = defaultMinCommission
	}
	if d.FallbackCommission == 0 {
		d.FallbackCommission = defaultFallbackCommission
	}
}

func setLinksDefaults(l *LinksConfig) {
	if l.CredentialPlatforms == nil {
		l.CredentialPlatforms = append([]string(nil), defaultCredentialPlatforms...)
	}
	if l.BatchWorkers == 0 {
		l.BatchWorkers = defaultBatchWorkers
	}
	if l.GenerateTimeout == 0 {
		l.GenerateTimeout = defaultGenerateTTL
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := infraconfig.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := infraconfig.ValidateOneOf("oracle.provider", c.Oracle.Provider,
		oracle.ProviderAnthropic, oracle.ProviderOpenAI, oracle.ProviderNone); err != nil {
		return err
	}
	if err := infraconfig.ValidateFraction("discovery.min_commission", c.Discovery.MinCommission); err != nil {
		return err
	}
	if err := infraconfig.ValidateFraction("discovery.fallback_commission", c.Discovery.FallbackCommission); err != nil {
		return err
	}
	if err := infraconfig.ValidatePositive("links.batch_workers", c.Links.BatchWorkers); err != nil {
		return err
	}
	if c.Links.Secret == "" {
		return &infraconfig.ValidationError{
			Field:   "links.secret",
			Message: "is required",
		}
	}
	return nil
}

package oracle

import (
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/circuitbreaker"
	infrahttp "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/http"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNone      = "none"
)

// Config selects and tunes the provider.
type Config struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	MaxTokens       int
	RatePerSecond   float64
	Burst           int
	MaxAttempts     int
	InitialBackoff  time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
	// ResponseHeaderTimeout bounds waiting for the provider's first byte.
	ResponseHeaderTimeout time.Duration
}

// New builds the configured provider behind Guarded.
func New(cfg Config, log logger.Logger, tel *telemetry.Provider) (Client, error) {
	httpClient := infrahttp.NewClient(&infrahttp.ClientConfig{
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
	})

	var inner Client
	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("oracle provider %s: api key is required", cfg.Provider)
		}
		inner = NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, httpClient)
	case ProviderOpenAI:
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("oracle provider %s: api key or base url is required", cfg.Provider)
		}
		inner = NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, httpClient)
	case ProviderNone, "":
		log.Info("Oracle disabled; static tables serve every request")
		return Unavailable{Reason: "provider none"}, nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}

	return NewGuarded(inner, GuardConfig{
		Name:          cfg.Provider,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
		Retry: retry.Config{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialBackoff,
		},
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.BreakerFailures,
			Timeout:          cfg.BreakerCooldown,
		},
	}, log, tel), nil
}

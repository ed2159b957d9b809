// Package adcopy recommends ad formats and writes ad copy for products.
package adcopy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/oracle"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/resolver"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
)

// ErrNilProduct is returned when no product is given.
var ErrNilProduct = errors.New("adcopy: product is nil")

// AdCopyStore persists generated copy. Rows are only ever inserted.
type AdCopyStore interface {
	InsertAdCopy(ctx context.Context, adCopy *domain.GeneratedAdCopy) (*domain.GeneratedAdCopy, error)
	ListAdCopiesForProduct(ctx context.Context, productID int64) ([]domain.GeneratedAdCopy, error)
}

// Config tunes the service.
type Config struct {
	// Timeout bounds the copy-generation oracle call.
	Timeout time.Duration
	// Static skips the oracle for both analysis and copy.
	Static bool
}

// Deps are the service's collaborators. Telemetry is optional.
type Deps struct {
	Resolver  *resolver.Resolver
	Oracle    oracle.Client
	Store     AdCopyStore
	Telemetry *telemetry.Provider
	Logger    logger.Logger
}

// Service runs the ad pipeline.
type Service struct {
	cfg       Config
	resolver  *resolver.Resolver
	oracle    oracle.Client
	store     AdCopyStore
	telemetry *telemetry.Provider
	log       logger.Logger
}

// NewService creates a Service.
func NewService(cfg Config, deps Deps) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = resolver.DefaultTimeout
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		cfg:       cfg,
		resolver:  deps.Resolver,
		oracle:    deps.Oracle,
		store:     deps.Store,
		telemetry: deps.Telemetry,
		log:       log.With(logger.String("component", "adcopy")),
	}
}

// History lists every copy generated for a product, newest first.
func (s *Service) History(ctx context.Context, productID int64) ([]domain.GeneratedAdCopy, error) {
	out, err := s.store.ListAdCopiesForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list ad copies for product %d: %w", productID, err)
	}
	return out, nil
}

// Package links synthesizes affiliate links and manages their lifecycle.
package links

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/discovery"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
)

// Generation defaults.
const (
	// DefaultBatchWorkers bounds GenerateAllLinks concurrency.
	DefaultBatchWorkers = 4
	// DefaultGenerateTimeout bounds one shared generation.
	DefaultGenerateTimeout = 2 * time.Minute
)

// DefaultCredentialPlatforms require a credential for unofficial programs.
var DefaultCredentialPlatforms = []domain.Platform{
	domain.PlatformAmazon,
	domain.PlatformTikTok,
	domain.PlatformInstagram,
	domain.PlatformYouTube,
	domain.PlatformPinterest,
}

// Discoverer ranks programs for a product.
type Discoverer interface {
	Discover(ctx context.Context, product *domain.Product, platform *domain.Platform) (discovery.Result, error)
}

// LinkStore persists links.
type LinkStore interface {
	// SupersedeAndCreate invalidates earlier links for the pair and inserts
	// link as active, atomically.
	SupersedeAndCreate(ctx context.Context, link *domain.AffiliateLink) (*domain.AffiliateLink, error)
	// UpdateTerms rewrites commission and cookie on an active link.
	UpdateTerms(ctx context.Context, id int64, commissionRate float64, cookieDays int) (*domain.AffiliateLink, error)
	// UpdateStatus moves id from one status to another. applied is false when
	// the row no longer has status from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.LinkStatus) (applied bool, err error)
	GetLink(ctx context.Context, id int64) (*domain.AffiliateLink, error)
	DeleteLink(ctx context.Context, id int64) error
	ListLinksForProduct(ctx context.Context, productID int64) ([]domain.AffiliateLink, error)
	// ListActivePairs returns the pairs among productIDs with an active link.
	ListActivePairs(ctx context.Context, productIDs []int64) ([]domain.LinkKey, error)
}

// ProductStore reads catalog products.
type ProductStore interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// CredentialStore reads platform credentials. A missing credential is nil, nil.
type CredentialStore interface {
	GetCredential(ctx context.Context, platform domain.Platform) (*domain.Credential, error)
}

// Config tunes the manager.
type Config struct {
	// Secret signs tracking refs.
	Secret string
	// CredentialPlatforms require a usable credential for unofficial programs.
	CredentialPlatforms []domain.Platform
	// BatchWorkers bounds GenerateAllLinks.
	BatchWorkers int
	// GenerateTimeout bounds a generation once it no longer follows the
	// cancellation of the caller that started it.
	GenerateTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.CredentialPlatforms == nil {
		c.CredentialPlatforms = DefaultCredentialPlatforms
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = DefaultBatchWorkers
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = DefaultGenerateTimeout
	}
}

// Deps are the manager's collaborators. Locker and Telemetry are optional.
type Deps struct {
	Discovery   Discoverer
	Links       LinkStore
	Products    ProductStore
	Credentials CredentialStore
	Locker      Locker
	Telemetry   *telemetry.Provider
	Logger      logger.Logger
}

// Manager generates, refreshes and deletes links.
type Manager struct {
	cfg       Config
	discovery Discoverer
	links     LinkStore
	products  ProductStore
	creds     CredentialStore
	locker    Locker
	telemetry *telemetry.Provider
	log       logger.Logger
	synth     *Synthesizer
	flight    singleflight.Group
}

// NewManager creates a Manager.
func NewManager(cfg Config, deps Deps) *Manager {
	cfg.setDefaults()
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		discovery: deps.Discovery,
		links:     deps.Links,
		products:  deps.Products,
		creds:     deps.Credentials,
		locker:    deps.Locker,
		telemetry: deps.Telemetry,
		log:       log.With(logger.String("component", "links")),
		synth:     NewSynthesizer(cfg.Secret),
	}
}

// GenerateLink creates the active link for product on platform, superseding
// any earlier one. Concurrent calls for the same pair in this process share
// one generation. The shared generation keeps the starting caller's values
// but not its cancellation, so a caller that gives up only stops waiting.
func (m *Manager) GenerateLink(ctx context.Context, product *domain.Product, platform domain.Platform) (*domain.AffiliateLink, error) {
	if product == nil {
		return nil, fmt.Errorf("generate link: %w", domain.ErrNotFound)
	}
	if !platform.Valid() {
		return nil, &domain.LinkError{ProductID: product.ID, Platform: platform, Err: domain.ErrInvalidPlatform}
	}
	if platform != domain.PlatformGeneric && product.IdentifierFor(platform) == "" {
		return nil, &domain.LinkError{
			ProductID: product.ID,
			Platform:  platform,
			Policy:    fmt.Sprintf("product has no %s identifier", platform),
			Err:       domain.ErrNoPlatformIdentifier,
		}
	}

	key := domain.LinkKey{ProductID: product.ID, Platform: platform}
	ch := m.flight.DoChan(key.String(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.GenerateTimeout)
		defer cancel()
		return m.generate(flightCtx, product, platform)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		link := *res.Val.(*domain.AffiliateLink)
		return &link, nil
	}
}

func (m *Manager) generate(ctx context.Context, product *domain.Product, platform domain.Platform) (link *domain.AffiliateLink, err error) {
	ctx, span := m.telemetry.StartSpan(ctx, "links.generate",
		attribute.Int64("product.id", product.ID),
		attribute.String("link.platform", string(platform)),
	)
	defer func() {
		m.telemetry.RecordLinkGenerated(string(platform), generateOutcome(err))
		telemetry.EndSpan(span, err)
	}()

	key := domain.LinkKey{ProductID: product.ID, Platform: platform}
	release, err := m.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := m.discovery.Discover(ctx, product, &platform)
	if err != nil {
		return nil, fmt.Errorf("discover programs: %w", err)
	}
	top, ok := res.Top()
	if !ok {
		return nil, &domain.LinkError{
			ProductID: product.ID,
			Platform:  platform,
			Policy:    "no affiliate program found",
			Err:       domain.ErrNotFound,
		}
	}

	cred, err := m.creds.GetCredential(ctx, platform)
	if err != nil {
		return nil, &domain.LinkError{ProductID: product.ID, Platform: platform, Err: err}
	}
	if !top.IsOfficial && m.requiresCredential(platform) && !cred.Usable() {
		return nil, &domain.LinkError{
			ProductID: product.ID,
			Platform:  platform,
			Policy:    fmt.Sprintf("no credential configured for %s", platform),
			Err:       domain.ErrCredentialMissing,
		}
	}

	urls, err := m.synth.Synthesize(product, platform, top, cred)
	if err != nil {
		return nil, &domain.LinkError{ProductID: product.ID, Platform: platform, Err: err}
	}

	saved, err := m.links.SupersedeAndCreate(ctx, &domain.AffiliateLink{
		ProductID:      product.ID,
		ProductName:    product.Name,
		Platform:       platform,
		ProgramName:    top.Name,
		CommissionRate: top.CommissionRate,
		CookieDays:     top.CookieDays,
		TrackingURL:    urls.TrackingURL,
		DestinationURL: urls.DestinationURL,
		IsOfficial:     top.IsOfficial,
		Status:         domain.LinkStatusActive,
	})
	if err != nil {
		return nil, &domain.LinkError{ProductID: product.ID, Platform: platform, Err: err}
	}

	m.log.Info("Affiliate link generated",
		logger.ProductID(product.ID),
		logger.Platform(string(platform)),
		logger.LinkID(saved.ID),
		logger.String("program", saved.ProgramName),
		logger.Bool("used_fallback", res.UsedFallback()),
	)
	return saved, nil
}

// acquire takes the cross-instance lock for key when a Locker is configured.
// A Locker failure is logged and generation continues under the store's own
// serialization.
func (m *Manager) acquire(ctx context.Context, key domain.LinkKey) (release func(), err error) {
	noop := func() {}
	if m.locker == nil {
		return noop, nil
	}

	lock, acquired, err := m.locker.TryAcquire(ctx, key.String())
	if err != nil {
		m.log.Warn("Generation lock unavailable, continuing without it",
			logger.ProductID(key.ProductID),
			logger.Platform(string(key.Platform)),
			logger.Error(err),
		)
		return noop, nil
	}
	if !acquired {
		return nil, &domain.LinkError{
			ProductID: key.ProductID,
			Platform:  key.Platform,
			Policy:    "generation already running elsewhere",
			Err:       domain.ErrConcurrentGeneration,
		}
	}

	return func() {
		if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			m.log.Warn("Failed to release generation lock",
				logger.ProductID(key.ProductID),
				logger.Platform(string(key.Platform)),
				logger.Error(relErr),
			)
		}
	}, nil
}

func (m *Manager) requiresCredential(platform domain.Platform) bool {
	return slices.Contains(m.cfg.CredentialPlatforms, platform)
}

func generateOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrCredentialMissing):
		return "credential_missing"
	case errors.Is(err, domain.ErrConcurrentGeneration):
		return "concurrent"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// DeleteLink removes a link row.
func (m *Manager) DeleteLink(ctx context.Context, id int64) error {
	if err := m.links.DeleteLink(ctx, id); err != nil {
		return fmt.Errorf("delete link %d: %w", id, err)
	}
	m.log.Info("Affiliate link deleted", logger.LinkID(id))
	return nil
}

// ListLinks returns every link for a product, newest first.
func (m *Manager) ListLinks(ctx context.Context, productID int64) ([]domain.AffiliateLink, error) {
	out, err := m.links.ListLinksForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list links for product %d: %w", productID, err)
	}
	return out, nil
}

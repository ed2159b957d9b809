// Package discovery finds and ranks affiliate programs for a product.
package discovery

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/resolver"
)

// Policy defaults.
const (
	DefaultMinCommission      = 0.03
	DefaultFallbackCommission = 0.04
	policyConfidence          = 0.5
)

// ErrNilProduct is returned when Discover is called without a product.
var ErrNilProduct = errors.New("discovery: product is nil")

// Config tunes discovery.
type Config struct {
	// MinCommission is the rate below which unofficial candidates do not count
	// as a usable result.
	MinCommission float64
	// FallbackCommission is the rate quoted for the appended Amazon candidate.
	FallbackCommission float64
	// Static skips the oracle and answers from the fallback tables only.
	Static bool
}

func (c *Config) setDefaults() {
	if c.MinCommission <= 0 {
		c.MinCommission = DefaultMinCommission
	}
	if c.FallbackCommission <= 0 {
		c.FallbackCommission = DefaultFallbackCommission
	}
}

// Result is the ranked candidate list for one discovery.
type Result struct {
	Candidates []domain.Candidate `json:"candidates"`
	// OracleFallback is true when any pass answered from a static table
	// instead of the oracle.
	OracleFallback bool `json:"oracle_fallback"`
	// PolicyAppended is true when the Amazon policy candidate was appended.
	// It is always the last candidate.
	PolicyAppended bool `json:"policy_appended"`
}

// UsedFallback reports whether any candidate came from a fallback.
func (r Result) UsedFallback() bool {
	return r.OracleFallback || r.PolicyAppended
}

// Discovered returns the candidates a source reported, without the policy candidate.
func (r Result) Discovered() []domain.Candidate {
	if r.PolicyAppended && len(r.Candidates) > 0 {
		return r.Candidates[:len(r.Candidates)-1]
	}
	return r.Candidates
}

// Top returns the best candidate, if any.
func (r Result) Top() (domain.Candidate, bool) {
	if len(r.Candidates) == 0 {
		return domain.Candidate{}, false
	}
	return r.Candidates[0], true
}

// Service runs discovery passes through a resolver.
type Service struct {
	resolver *resolver.Resolver
	cfg      Config
	log      logger.Logger
}

// NewService creates a discovery service.
func NewService(res *resolver.Resolver, cfg Config, log logger.Logger) *Service {
	cfg.setDefaults()
	return &Service{
		resolver: res,
		cfg:      cfg,
		log:      log.With(logger.String("component", "discovery")),
	}
}

// Discover ranks programs for product. A nil platform runs one pass per
// platform the product is listed on, or a single generic pass. The only
// error besides ErrNilProduct is the caller's cancellation.
func (s *Service) Discover(ctx context.Context, product *domain.Product, platform *domain.Platform) (Result, error) {
	if product == nil {
		return Result{}, ErrNilProduct
	}

	passes := passPlatforms(product, platform)
	results := make([]resolver.Result, len(passes))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range passes {
		g.Go(func() error {
			res, err := s.resolver.Resolve(gctx, resolver.Request{
				Operation: "discover." + string(p),
				Prompt:    buildPrompt(product, p),
				Source:    s.source(),
				Decode:    decodeProgram,
				Fallback:  fallbackTable(product, p),
				Subject:   product.Category,
			})
			if err != nil {
				return err
			}
			res.Candidates = forPlatform(res.Candidates, p)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var merged []domain.Candidate
	oracleFallback := false
	for _, res := range results {
		merged = append(merged, res.Candidates...)
		oracleFallback = oracleFallback || res.Fallback
	}

	out := Result{Candidates: resolver.Rank(merged), OracleFallback: oracleFallback}
	if s.needsAmazonFallback(out.Candidates) {
		out.Candidates = append(out.Candidates, s.amazonFallback())
		out.PolicyAppended = true
	}

	s.log.Debug("Discovery complete",
		logger.ProductID(product.ID),
		logger.Int("passes", len(passes)),
		logger.Int("candidates", len(out.Candidates)),
		logger.Bool("oracle_fallback", out.OracleFallback),
		logger.Bool("policy_appended", out.PolicyAppended),
	)
	return out, nil
}

func (s *Service) source() resolver.Source {
	if s.cfg.Static {
		return resolver.SourceStatic
	}
	return resolver.SourceOracle
}

// needsAmazonFallback is true for an empty list or one where every candidate
// is unofficial and pays under MinCommission.
func (s *Service) needsAmazonFallback(candidates []domain.Candidate) bool {
	for _, c := range candidates {
		if c.IsOfficial || c.CommissionRate >= s.cfg.MinCommission {
			return false
		}
	}
	return true
}

func (s *Service) amazonFallback() domain.Candidate {
	return domain.Candidate{
		Name:           AmazonProgramName,
		Platform:       domain.PlatformAmazon,
		CommissionRate: s.cfg.FallbackCommission,
		CookieDays:     AmazonCookieDays,
		URL:            AmazonProgramURL,
		IsOfficial:     false,
		Confidence:     policyConfidence,
		Attributes: map[string]string{
			domain.AttrReason: "No program met the commission floor; Amazon Associates covers every category",
		},
	}.Clamped()
}

func passPlatforms(product *domain.Product, platform *domain.Platform) []domain.Platform {
	if platform != nil {
		return []domain.Platform{*platform}
	}
	if ps := product.Platforms(); len(ps) > 0 {
		return ps
	}
	return []domain.Platform{domain.PlatformGeneric}
}

// forPlatform drops candidates naming another platform and fills in an
// empty one.
func forPlatform(candidates []domain.Candidate, platform domain.Platform) []domain.Candidate {
	kept := slices.DeleteFunc(candidates, func(c domain.Candidate) bool {
		return c.Platform != "" && c.Platform != platform
	})
	for i := range kept {
		if kept[i].Platform == "" {
			kept[i].Platform = platform
		}
	}
	return kept
}

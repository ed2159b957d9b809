package links

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/discovery"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
)

// RefreshResult is the link after a refresh plus anything worth reporting.
type RefreshResult struct {
	Link     *domain.AffiliateLink `json:"link"`
	Previous domain.LinkStatus     `json:"previous_status"`
	Warnings []string              `json:"warnings,omitempty"`
}

// RefreshLink re-validates a link's program against fresh discovery:
//   - program ranked first: stays active, terms updated
//   - program listed lower, or a pass fell back to its table: expired
//   - program missing from the oracle's answer: invalid, terms kept
//
// Expired and invalid links are never reactivated in place. A tracking ref
// that no longer verifies is reported as a warning.
func (m *Manager) RefreshLink(ctx context.Context, id int64) (result *RefreshResult, err error) {
	ctx, span := m.telemetry.StartSpan(ctx, "links.refresh", attribute.Int64("link.id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	link, err := m.links.GetLink(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load link %d: %w", id, err)
	}
	product, err := m.products.GetProduct(ctx, link.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", link.ProductID, err)
	}

	platform := link.Platform
	res, err := m.discovery.Discover(ctx, product, &platform)
	if err != nil {
		return nil, fmt.Errorf("discover programs: %w", err)
	}

	target, top := refreshTarget(link.ProgramName, res)
	result = &RefreshResult{Link: link, Previous: link.Status}
	if !m.synth.VerifyRef(link) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("link %d tracking ref was not signed with the current secret; regenerate the link", id))
	}

	switch {
	case target == domain.LinkStatusActive && link.Status == domain.LinkStatusActive:
		updated, err := m.links.UpdateTerms(ctx, link.ID, top.CommissionRate, top.CookieDays)
		if err != nil {
			return nil, fmt.Errorf("update terms for link %d: %w", id, err)
		}
		result.Link = updated
	case target == link.Status:
	case link.Status.CanTransitionTo(target):
		applied, err := m.links.UpdateStatus(ctx, link.ID, link.Status, target)
		if err != nil {
			return nil, fmt.Errorf("update status for link %d: %w", id, err)
		}
		m.telemetry.RecordTransition(string(link.Status), string(target), applied)
		if applied {
			result.Link.Status = target
		} else {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("link %d changed concurrently; %s to %s not applied", id, link.Status, target))
		}
	default:
		m.telemetry.RecordTransition(string(link.Status), string(target), false)
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("transition %s to %s is not allowed; regenerate the link instead", link.Status, target))
	}

	fields := []logger.Field{
		logger.LinkID(id),
		logger.ProductID(link.ProductID),
		logger.Platform(string(platform)),
		logger.String("previous_status", string(result.Previous)),
		logger.String("status", string(result.Link.Status)),
		logger.Bool("oracle_fallback", res.OracleFallback),
	}
	if len(result.Warnings) > 0 {
		m.log.Warn("Link refreshed with warnings", append(fields, logger.Strings("warnings", result.Warnings))...)
	} else {
		m.log.Info("Link refreshed", fields...)
	}
	return result, nil
}

// refreshTarget decides the status program deserves given res, and returns
// the top candidate for term updates. A table fallback cannot confirm or deny
// the program. The appended Amazon policy candidate is not a discovery.
func refreshTarget(program string, res discovery.Result) (domain.LinkStatus, domain.Candidate) {
	if res.OracleFallback {
		return domain.LinkStatusExpired, domain.Candidate{}
	}

	found := res.Discovered()
	rank := slices.IndexFunc(found, func(c domain.Candidate) bool {
		return strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(program))
	})

	switch {
	case rank == 0:
		return domain.LinkStatusActive, found[0]
	case rank > 0:
		return domain.LinkStatusExpired, found[0]
	default:
		return domain.LinkStatusInvalid, domain.Candidate{}
	}
}

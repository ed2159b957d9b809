package links

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// ItemError is one failed pair in a batch.
type ItemError struct {
	ProductID int64           `json:"product_id"`
	Platform  domain.Platform `json:"platform"`
	Err       error           `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("product %d on %s: %v", e.ProductID, e.Platform, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// BatchResult holds generated links and per-item failures, both sorted by
// product id then platform.
type BatchResult struct {
	Links  []*domain.AffiliateLink `json:"links"`
	Errors []ItemError             `json:"errors,omitempty"`
}

type batchJob struct {
	product *domain.Product
	key     domain.LinkKey
}

// GenerateAllLinks generates a link for every pair among products that has a
// platform identifier but no active link. Failures are collected per item and
// never stop the batch. The returned error is only the caller's cancellation
// or a failure to plan the batch.
func (m *Manager) GenerateAllLinks(ctx context.Context, products []domain.Product) (*BatchResult, error) {
	start := time.Now()
	defer func() { m.telemetry.RecordBatch(time.Since(start)) }()

	jobs, err := m.planBatch(ctx, products)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result = &BatchResult{}
	)

	// Items fail independently, so there is no group error to collect.
	var wg sync.WaitGroup
	sem := make(chan struct{}, m.cfg.BatchWorkers)
	for _, job := range jobs {
		sem <- struct{}{}
		wg.Go(func() {
			defer func() { <-sem }()
			link, genErr := m.GenerateLink(ctx, job.product, job.key.Platform)

			mu.Lock()
			defer mu.Unlock()
			if genErr != nil {
				result.Errors = append(result.Errors, ItemError{
					ProductID: job.key.ProductID,
					Platform:  job.key.Platform,
					Err:       genErr,
				})
				return
			}
			result.Links = append(result.Links, link)
		})
	}
	wg.Wait()

	slices.SortFunc(result.Links, func(a, b *domain.AffiliateLink) int {
		return compareKeys(
			domain.LinkKey{ProductID: a.ProductID, Platform: a.Platform},
			domain.LinkKey{ProductID: b.ProductID, Platform: b.Platform},
		)
	})
	slices.SortFunc(result.Errors, func(a, b ItemError) int {
		return compareKeys(
			domain.LinkKey{ProductID: a.ProductID, Platform: a.Platform},
			domain.LinkKey{ProductID: b.ProductID, Platform: b.Platform},
		)
	})

	m.log.Info("Batch link generation finished",
		logger.Int("jobs", len(jobs)),
		logger.Int("generated", len(result.Links)),
		logger.Int("failed", len(result.Errors)),
		logger.Duration("duration", time.Since(start)),
	)
	return result, ctx.Err()
}

func (m *Manager) planBatch(ctx context.Context, products []domain.Product) ([]batchJob, error) {
	if len(products) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	active, err := m.links.ListActivePairs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}
	covered := make(map[domain.LinkKey]struct{}, len(active))
	for _, k := range active {
		covered[k] = struct{}{}
	}

	var jobs []batchJob
	for i := range products {
		p := &products[i]
		for _, platform := range p.Platforms() {
			key := domain.LinkKey{ProductID: p.ID, Platform: platform}
			if _, ok := covered[key]; ok {
				continue
			}
			jobs = append(jobs, batchJob{product: p, key: key})
		}
	}
	return jobs, nil
}

func compareKeys(a, b domain.LinkKey) int {
	if c := cmp.Compare(a.ProductID, b.ProductID); c != 0 {
		return c
	}
	return cmp.Compare(a.Platform, b.Platform)
}

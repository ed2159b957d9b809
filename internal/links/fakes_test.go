package links_test

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/discovery"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/links"
)

type fakeDiscovery struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	result      func(platform domain.Platform) discovery.Result
	delay       time.Duration
}

func (f *fakeDiscovery) Discover(ctx context.Context, _ *domain.Product, platform *domain.Platform) (discovery.Result, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return discovery.Result{}, ctx.Err()
		}
	}
	return f.result(*platform), nil
}

func (f *fakeDiscovery) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeDiscovery) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memLinks keeps links in memory and enforces one active row per pair.
type memLinks struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.AffiliateLink
}

func newMemLinks() *memLinks {
	return &memLinks{rows: map[int64]*domain.AffiliateLink{}}
}

func (s *memLinks) SupersedeAndCreate(_ context.Context, link *domain.AffiliateLink) (*domain.AffiliateLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.ProductID == link.ProductID && row.Platform == link.Platform && row.Status != domain.LinkStatusInvalid {
			row.Status = domain.LinkStatusInvalid
		}
	}
	s.nextID++
	saved := *link
	saved.ID = s.nextID
	saved.CreatedAt = time.Now()
	saved.UpdatedAt = saved.CreatedAt
	s.rows[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (s *memLinks) UpdateTerms(_ context.Context, id int64, rate float64, cookie int) (*domain.AffiliateLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Status != domain.LinkStatusActive {
		return nil, domain.ErrNotFound
	}
	row.CommissionRate = rate
	row.CookieDays = cookie
	out := *row
	return &out, nil
}

func (s *memLinks) UpdateStatus(_ context.Context, id int64, from, to domain.LinkStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

func (s *memLinks) GetLink(_ context.Context, id int64) (*domain.AffiliateLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *row
	return &out, nil
}

func (s *memLinks) DeleteLink(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memLinks) ListLinksForProduct(_ context.Context, productID int64) ([]domain.AffiliateLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AffiliateLink
	for _, row := range s.rows {
		if row.ProductID == productID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *memLinks) ListActivePairs(_ context.Context, productIDs []int64) ([]domain.LinkKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := map[int64]bool{}
	for _, id := range productIDs {
		want[id] = true
	}
	var out []domain.LinkKey
	for _, row := range s.rows {
		if want[row.ProductID] && row.Status == domain.LinkStatusActive {
			out = append(out, domain.LinkKey{ProductID: row.ProductID, Platform: row.Platform})
		}
	}
	return out, nil
}

func (s *memLinks) active(key domain.LinkKey) []domain.AffiliateLink {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AffiliateLink
	for _, row := range s.rows {
		if row.ProductID == key.ProductID && row.Platform == key.Platform && row.Status == domain.LinkStatusActive {
			out = append(out, *row)
		}
	}
	return out
}

func (s *memLinks) insert(link domain.AffiliateLink) *domain.AffiliateLink {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	link.ID = s.nextID
	s.rows[link.ID] = &link
	out := link
	return &out
}

type memProducts map[int64]*domain.Product

func (m memProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type memCredentials map[domain.Platform]*domain.Credential

func (m memCredentials) GetCredential(_ context.Context, platform domain.Platform) (*domain.Credential, error) {
	return m[platform], nil
}

type heldLocker struct{}

func (heldLocker) TryAcquire(context.Context, string) (links.Lock, bool, error) {
	return nil, false, nil
}

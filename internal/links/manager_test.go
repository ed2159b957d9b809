package links_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/clickurl"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/discovery"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/links"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/oracle"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serum() *domain.Product {
	return &domain.Product{
		ID:              42,
		Name:            "Glow Serum",
		Category:        "Beauty & Skincare",
		AmazonASIN:      "B0TEST42",
		TikTokProductID: "tt-42",
	}
}

func amazonCandidate() domain.Candidate {
	return domain.Candidate{
		Name:           "Amazon Associates",
		Platform:       domain.PlatformAmazon,
		CommissionRate: 0.10,
		CookieDays:     24,
		URL:            "https://affiliate-program.amazon.com/",
		Confidence:     0.9,
	}
}

func oracleResult(cs ...domain.Candidate) func(domain.Platform) discovery.Result {
	return func(domain.Platform) discovery.Result {
		return discovery.Result{Candidates: cs}
	}
}

type fixture struct {
	manager   *links.Manager
	discovery *fakeDiscovery
	links     *memLinks
	products  memProducts
}

func newFixture(t *testing.T, disc *fakeDiscovery, creds memCredentials, opts ...func(*links.Deps)) *fixture {
	t.Helper()

	store := newMemLinks()
	products := memProducts{42: serum()}
	deps := links.Deps{
		Discovery:   disc,
		Links:       store,
		Products:    products,
		Credentials: creds,
		Logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &fixture{
		manager:   links.NewManager(links.Config{Secret: "secret"}, deps),
		discovery: disc,
		links:     store,
		products:  products,
	}
}

var amazonCreds = memCredentials{
	domain.PlatformAmazon: {Platform: domain.PlatformAmazon, AffiliateID: "affilai-20", Active: true},
}

func TestGenerateLink_PersistsActiveLink(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeDiscovery{result: oracleResult(amazonCandidate())}, amazonCreds)

	link, err := f.manager.GenerateLink(context.Background(), serum(), domain.PlatformAmazon)
	require.NoError(t, err)
	assert.Equal(t, domain.LinkStatusActive, link.Status)
	assert.Equal(t, "Amazon Associates", link.ProgramName)
	assert.InDelta(t, 0.10, link.CommissionRate, 1e-9)
	assert.Equal(t, "https://www.amazon.com/dp/B0TEST42", link.DestinationURL)
	assert.Contains(t, link.TrackingURL, "tag=affilai-20")
	assert.True(t, links.NewSynthesizer("secret").VerifyRef(link))
}

func TestGenerateLink_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeDiscovery{result: oracleResult(amazonCandidate())}, amazonCreds)
	ctx := context.Background()

	first, err := f.manager.GenerateLink(ctx, serum(), domain.PlatformAmazon)
	require.NoError(t, err)
	second, err := f.manager.GenerateLink(ctx, serum(), domain.PlatformAmazon)
	require.NoError(t, err)

	assert.Equal(t, first.TrackingURL, second.TrackingURL)
	assert.NotEqual(t, first.ID, second.ID)

	prior, err := f.links.GetLink(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LinkStatusInvalid, prior.Status)
	assert.Len(t, f.links.active(domain.LinkKey{ProductID: 42, Platform: domain.PlatformAmazon}), 1)
}

func TestGenerateLink_ConcurrentCallsLeaveOneActiveRow(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscovery{result: oracleResult(amazonCandidate()), delay: 20 * time.Millisecond}
	f := newFixture(t, disc, amazonCreds)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.manager.GenerateLink(context.Background(), serum(), domain.PlatformAmazon)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, f.links.active(domain.LinkKey{ProductID: 42, Platform: domain.PlatformAmazon}), 1)
	assert.Less(t, disc.Calls(), callers, "concurrent callers share generations")
}

func TestGenerateLink_LeaderCancellationDoesNotFailFollower(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscovery{result: oracleResult(amazonCandidate()), delay: 150 * time.Millisecond}
	f := newFixture(t, disc, amazonCreds)

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := f.manager.GenerateLink(leaderCtx, serum(), domain.PlatformAmazon)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return disc.Calls() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		link *domain.AffiliateLink
		err  error
	}
	follower := make(chan outcome, 1)
	go func() {
		link, err := f.manager.GenerateLink(context.Background(), serum(), domain.PlatformAmazon)
		follower <- outcome{link: link, err: err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, domain.LinkStatusActive, got.link.Status)
	assert.Equal(t, 1, disc.Calls(), "the follower joined the running generation")
	assert.Len(t, f.links.active(domain.LinkKey{ProductID: 42, Platform: domain.PlatformAmazon}), 1)
}

func TestGenerateLink_Errors(t *testing.T) {
	t.Parallel()

	tiktokProgram := domain.Candidate{Name: "TikTok Shop Creator Program", CommissionRate: 0.12, Confidence: 0.9}

	tests := []struct {
		name     string
		product  *domain.Product
		platform domain.Platform
		cands    []domain.Candidate
		creds    memCredentials
		wantErr  error
		wantMsg  string
	}{
		{
			name:     "no identifier",
			product:  serum(),
			platform: domain.PlatformYouTube,
			wantErr:  domain.ErrNoPlatformIdentifier,
			wantMsg:  "product 42 on youtube: product has no youtube identifier",
		},
		{
			name:     "unknown platform",
			product:  serum(),
			platform: domain.Platform("myspace"),
			wantErr:  domain.ErrInvalidPlatform,
		},
		{
			name:     "credential missing",
			product:  serum(),
			platform: domain.PlatformTikTok,
			cands:    []domain.Candidate{tiktokProgram},
			wantErr:  domain.ErrCredentialMissing,
			wantMsg:  "product 42 on tiktok: no credential configured for tiktok",
		},
		{
			name:     "inactive credential",
			product:  serum(),
			platform: domain.PlatformTikTok,
			cands:    []domain.Candidate{tiktokProgram},
			creds: memCredentials{
				domain.PlatformTikTok: {Platform: domain.PlatformTikTok, AffiliateID: "tt", Active: false},
			},
			wantErr: domain.ErrCredentialMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, &fakeDiscovery{result: oracleResult(tt.cands...)}, tt.creds)
			_, err := f.manager.GenerateLink(context.Background(), tt.product, tt.platform)
			require.ErrorIs(t, err, tt.wantErr)

			var linkErr *domain.LinkError
			require.ErrorAs(t, err, &linkErr)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
			assert.False(t, domain.IsRetryable(err))
		})
	}
}

func TestGenerateLink_OfficialProgramNeedsNoCredential(t *testing.T) {
	t.Parallel()

	official := domain.Candidate{
		Name:           "Glow Brand Partners",
		CommissionRate: 0.2,
		URL:            "https://glow.example/partners/serum",
		IsOfficial:     true,
		Confidence:     0.95,
	}
	f := newFixture(t, &fakeDiscovery{result: oracleResult(official)}, nil)

	link, err := f.manager.GenerateLink(context.Background(), serum(), domain.PlatformTikTok)
	require.NoError(t, err)
	assert.True(t, link.IsOfficial)
	assert.NotContains(t, link.TrackingURL, "aff_id=")
}

func TestGenerateLink_LockHeldElsewhere(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeDiscovery{result: oracleResult(amazonCandidate())}, amazonCreds,
		func(d *links.Deps) { d.Locker = heldLocker{} })

	_, err := f.manager.GenerateLink(context.Background(), serum(), domain.PlatformAmazon)
	require.ErrorIs(t, err, domain.ErrConcurrentGeneration)
	assert.True(t, domain.IsRetryable(err))
	assert.Zero(t, f.discovery.Calls())
}

func seedLink(f *fixture, status domain.LinkStatus) *domain.AffiliateLink {
	return seedProgramLink(f, status, "Amazon Associates")
}

func seedProgramLink(f *fixture, status domain.LinkStatus, program string) *domain.AffiliateLink {
	ref := clickurl.NewSigner("secret").Ref(clickurl.LinkParams{
		ProductID: 42,
		Platform:  string(domain.PlatformAmazon),
		Program:   program,
	})
	return f.links.insert(domain.AffiliateLink{
		ProductID:      42,
		Platform:       domain.PlatformAmazon,
		ProgramName:    program,
		CommissionRate: 0.08,
		CookieDays:     24,
		TrackingURL:    "https://www.amazon.com/dp/B0TEST42?ref=" + ref,
		DestinationURL: "https://www.amazon.com/dp/B0TEST42",
		Status:         status,
	})
}

func TestRefreshLink(t *testing.T) {
	t.Parallel()

	other := domain.Candidate{Name: "Impact Radius", CommissionRate: 0.2, Confidence: 0.95}
	updated := amazonCandidate()
	updated.CommissionRate = 0.06
	updated.CookieDays = 30

	tests := []struct {
		name         string
		status       domain.LinkStatus
		result       discovery.Result
		wantStatus   domain.LinkStatus
		wantRate     float64
		wantCookie   int
		wantWarnings int
	}{
		{
			name:       "top program stays active with new terms",
			status:     domain.LinkStatusActive,
			result:     discovery.Result{Candidates: []domain.Candidate{updated, other}},
			wantStatus: domain.LinkStatusActive,
			wantRate:   0.06,
			wantCookie: 30,
		},
		{
			name:       "program outranked expires",
			status:     domain.LinkStatusActive,
			result:     discovery.Result{Candidates: []domain.Candidate{other, amazonCandidate()}},
			wantStatus: domain.LinkStatusExpired,
			wantRate:   0.08,
			wantCookie: 24,
		},
		{
			name:       "table fallback cannot confirm",
			status:     domain.LinkStatusActive,
			result:     discovery.Result{Candidates: []domain.Candidate{amazonCandidate()}, OracleFallback: true},
			wantStatus: domain.LinkStatusExpired,
			wantRate:   0.08,
			wantCookie: 24,
		},
		{
			name:       "policy candidate is not a discovery",
			status:     domain.LinkStatusActive,
			result:     discovery.Result{Candidates: []domain.Candidate{amazonCandidate()}, PolicyAppended: true},
			wantStatus: domain.LinkStatusInvalid,
			wantRate:   0.08,
			wantCookie: 24,
		},
		{
			name:       "vanished program invalidates and keeps terms",
			status:     domain.LinkStatusActive,
			result:     discovery.Result{Candidates: []domain.Candidate{other}},
			wantStatus: domain.LinkStatusInvalid,
			wantRate:   0.08,
			wantCookie: 24,
		},
		{
			name:       "expired link vanishes",
			status:     domain.LinkStatusExpired,
			result:     discovery.Result{Candidates: []domain.Candidate{other}},
			wantStatus: domain.LinkStatusInvalid,
			wantRate:   0.08,
			wantCookie: 24,
		},
		{
			name:         "expired link is not reactivated",
			status:       domain.LinkStatusExpired,
			result:       discovery.Result{Candidates: []domain.Candidate{updated}},
			wantStatus:   domain.LinkStatusExpired,
			wantRate:     0.08,
			wantCookie:   24,
			wantWarnings: 1,
		},
		{
			name:         "invalid link stays invalid",
			status:       domain.LinkStatusInvalid,
			result:       discovery.Result{Candidates: []domain.Candidate{other, amazonCandidate()}},
			wantStatus:   domain.LinkStatusInvalid,
			wantRate:     0.08,
			wantCookie:   24,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, &fakeDiscovery{result: func(domain.Platform) discovery.Result { return tt.result }}, amazonCreds)
			seeded := seedLink(f, tt.status)

			res, err := f.manager.RefreshLink(context.Background(), seeded.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Previous)
			assert.Equal(t, tt.wantStatus, res.Link.Status)
			assert.Len(t, res.Warnings, tt.wantWarnings)

			stored, err := f.links.GetLink(context.Background(), seeded.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.InDelta(t, tt.wantRate, stored.CommissionRate, 1e-9)
			assert.Equal(t, tt.wantCookie, stored.CookieDays)
		})
	}
}

func newPipeline(reply oracle.Client) links.Discoverer {
	res := resolver.New(reply, 100*time.Millisecond, logger.NewNop(), nil)
	return discovery.NewService(res, discovery.Config{}, logger.NewNop())
}

func replying(reply string) oracle.Client {
	return oracle.Func(func(context.Context, string) (string, error) { return reply, nil })
}

func TestRefreshLink_ThroughDiscovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		program    string
		client     oracle.Client
		wantStatus domain.LinkStatus
		wantRate   float64
	}{
		{
			name:       "oracle answers with no programs",
			program:    "Glow Official",
			client:     replying("[]"),
			wantStatus: domain.LinkStatusInvalid,
			wantRate:   0.08,
		},
		{
			name:    "oracle answers only under the commission floor",
			program: "Glow Official",
			client: replying(`[{"program_name":"Tiny Network","platform":"amazon",` +
				`"commission_rate":0.01,"confidence_score":0.99}]`),
			wantStatus: domain.LinkStatusInvalid,
			wantRate:   0.08,
		},
		{
			name:       "appended Amazon candidate does not keep Amazon links alive",
			program:    discovery.AmazonProgramName,
			client:     replying("[]"),
			wantStatus: domain.LinkStatusInvalid,
			wantRate:   0.08,
		},
		{
			name:       "oracle down",
			program:    "Glow Official",
			client:     oracle.Unavailable{},
			wantStatus: domain.LinkStatusExpired,
			wantRate:   0.08,
		},
		{
			name:    "oracle confirms the program",
			program: "Glow Official",
			client: replying(`[{"program_name":"Glow Official","platform":"amazon","commission_rate":0.15,` +
				`"cookie_duration":30,"is_official":true,"confidence_score":0.95}]`),
			wantStatus: domain.LinkStatusActive,
			wantRate:   0.15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, &fakeDiscovery{}, amazonCreds,
				func(d *links.Deps) { d.Discovery = newPipeline(tt.client) })
			seeded := seedProgramLink(f, domain.LinkStatusActive, tt.program)

			res, err := f.manager.RefreshLink(context.Background(), seeded.ID)
			require.NoError(t, err)
			assert.Empty(t, res.Warnings)
			assert.Equal(t, tt.wantStatus, res.Link.Status)

			stored, err := f.links.GetLink(context.Background(), seeded.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.InDelta(t, tt.wantRate, stored.CommissionRate, 1e-9)
		})
	}
}

func TestRefreshLink_WarnsOnForeignRef(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeDiscovery{result: oracleResult(amazonCandidate())}, amazonCreds)
	seeded := f.links.insert(domain.AffiliateLink{
		ProductID:      42,
		Platform:       domain.PlatformAmazon,
		ProgramName:    "Amazon Associates",
		TrackingURL:    "https://www.amazon.com/dp/B0TEST42?ref=afl_000000000000",
		DestinationURL: "https://www.amazon.com/dp/B0TEST42",
		Status:         domain.LinkStatusActive,
	})

	res, err := f.manager.RefreshLink(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "regenerate the link")
	assert.Equal(t, domain.LinkStatusActive, res.Link.Status, "a foreign ref does not change status")
}

func TestRefreshLink_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeDiscovery{result: oracleResult()}, nil)
	_, err := f.manager.RefreshLink(context.Background(), 999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteLink(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeDiscovery{result: oracleResult()}, nil)
	seeded := seedLink(f, domain.LinkStatusActive)

	require.NoError(t, f.manager.DeleteLink(context.Background(), seeded.ID))
	require.ErrorIs(t, f.manager.DeleteLink(context.Background(), seeded.ID), domain.ErrNotFound)

	got, err := f.manager.ListLinks(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerateAllLinks(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscovery{result: func(p domain.Platform) discovery.Result {
		if p == domain.PlatformAmazon {
			return discovery.Result{Candidates: []domain.Candidate{amazonCandidate()}}
		}
		return discovery.Result{Candidates: []domain.Candidate{{Name: "TikTok Shop Creator Program", CommissionRate: 0.12, Confidence: 0.9}}}
	}}
	f := newFixture(t, disc, amazonCreds)

	covered := serum()
	covered.ID = 7
	f.links.insert(domain.AffiliateLink{ProductID: 7, Platform: domain.PlatformAmazon, ProgramName: "Amazon Associates", Status: domain.LinkStatusActive})

	lamp := domain.Product{ID: 3, Name: "Desk Lamp", Category: "Home", AmazonASIN: "B0LAMP"}
	products := []domain.Product{*serum(), *covered, lamp}

	res, err := f.manager.GenerateAllLinks(context.Background(), products)
	require.NoError(t, err)

	got := make([]domain.LinkKey, 0, len(res.Links))
	for _, l := range res.Links {
		got = append(got, domain.LinkKey{ProductID: l.ProductID, Platform: l.Platform})
	}
	assert.Equal(t, []domain.LinkKey{
		{ProductID: 3, Platform: domain.PlatformAmazon},
		{ProductID: 42, Platform: domain.PlatformAmazon},
	}, got)

	require.Len(t, res.Errors, 2)
	assert.Equal(t, int64(7), res.Errors[0].ProductID)
	assert.Equal(t, domain.PlatformTikTok, res.Errors[0].Platform)
	assert.Equal(t, int64(42), res.Errors[1].ProductID)
	for _, itemErr := range res.Errors {
		assert.True(t, errors.Is(itemErr, domain.ErrCredentialMissing))
	}
}

func TestGenerateAllLinks_BoundedWorkers(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscovery{result: oracleResult(amazonCandidate()), delay: 10 * time.Millisecond}
	manager := links.NewManager(links.Config{Secret: "secret", BatchWorkers: 2}, links.Deps{
		Discovery:   disc,
		Links:       newMemLinks(),
		Products:    memProducts{},
		Credentials: amazonCreds,
		Logger:      logger.NewNop(),
	})

	products := make([]domain.Product, 0, 8)
	for i := range 8 {
		products = append(products, domain.Product{ID: int64(100 + i), Name: "Lamp", Category: "Home", AmazonASIN: "B0LAMP"})
	}

	res, err := manager.GenerateAllLinks(context.Background(), products)
	require.NoError(t, err)
	assert.Len(t, res.Links, 8)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 8, disc.Calls())
	assert.LessOrEqual(t, disc.MaxInFlight(), 2)
}

func TestGenerateAllLinks_Empty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeDiscovery{result: oracleResult()}, nil)
	res, err := f.manager.GenerateAllLinks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Links)
	assert.Empty(t, res.Errors)
}

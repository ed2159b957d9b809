package common_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/common"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/links"
)

func TestRenderPrograms(t *testing.T) {
	var buf bytes.Buffer
	common.RenderPrograms(&buf, []domain.Candidate{
		{Name: "Amazon Associates", Platform: domain.PlatformAmazon, CommissionRate: 0.04, CookieDays: 24, Confidence: 0.5},
	}, true)

	out := buf.String()
	assert.Contains(t, out, "Amazon Associates")
	assert.Contains(t, out, "4.0%")
	assert.Contains(t, out, "24d")
	assert.Contains(t, out, "fallback data used")
}

func TestRenderBatch_ListsErrors(t *testing.T) {
	var buf bytes.Buffer
	common.RenderBatch(&buf, &links.BatchResult{
		Links: []*domain.AffiliateLink{{ID: 1, ProductID: 42, Platform: domain.PlatformAmazon, UpdatedAt: time.Now()}},
		Errors: []links.ItemError{
			{ProductID: 42, Platform: domain.PlatformTikTok, Err: errors.New("credential missing")},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "amazon")
	assert.Contains(t, out, "credential missing")
}

func TestRenderAdCopies_MissingScore(t *testing.T) {
	var buf bytes.Buffer
	score := 81.0
	common.RenderAdCopies(&buf, []domain.GeneratedAdCopy{
		{ID: 1, AdType: domain.AdTypeStory, Headline: "Discover Glow Serum", PerformanceScore: &score},
		{ID: 2, AdType: domain.AdTypeEmail, Headline: "Glow Serum"},
	})

	out := buf.String()
	assert.Contains(t, out, "81")
	assert.Contains(t, out, "-")
}

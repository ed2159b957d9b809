package discovery

import (
	"fmt"
	"strconv"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/resolver"
)

// Amazon Associates terms used by the fallback table and the empty-result policy.
const (
	AmazonProgramName = "Amazon Associates"
	AmazonProgramURL  = "https://affiliate-program.amazon.com/"
	AmazonCookieDays  = 24
)

type program struct {
	name       string
	commission float64
	cookieDays int
	// urlPrefix is joined with the product slug. Empty means the product's own URL.
	urlPrefix string
}

var platformPrograms = map[domain.Platform]program{
	domain.PlatformTikTok:    {"TikTok Shop Creator Program", 0.12, 14, "https://affiliate.tiktok.com/"},
	domain.PlatformInstagram: {"Instagram Shopping", 0.15, 30, "https://business.instagram.com/shopping/"},
	domain.PlatformYouTube:   {"YouTube Shopping Affiliate", 0.10, 30, "https://shopping.youtube.com/products/"},
	domain.PlatformPinterest: {"Pinterest Buyable Pins", 0.13, 30, "https://business.pinterest.com/buyable/"},
}

var brandDirect = program{name: "Brand Direct Affiliate Program", commission: 0.05, cookieDays: 30}

var amazonRates = map[categoryGroup]float64{
	groupBeauty:      0.10,
	groupHealth:      0.10,
	groupFashion:     0.08,
	groupHome:        0.08,
	groupElectronics: 0.04,
	groupWearable:    0.04,
}

const amazonDefaultRate = 0.05

// fallbackTable builds the static table for one product and platform. Each
// category group gets its own rule so the table can price and score by
// category the same way an oracle answer would.
func fallbackTable(product *domain.Product, platform domain.Platform) resolver.Table {
	rules := make([]resolver.Rule, 0, len(categoryKeywords))
	for _, g := range categoryKeywords {
		rules = append(rules, resolver.Rule{
			Keywords:  g.keywords,
			Candidate: fallbackCandidate(product, platform, g.group),
		})
	}
	return resolver.Table{
		Rules:   rules,
		Generic: fallbackCandidate(product, platform, groupOther),
	}
}

func fallbackCandidate(product *domain.Product, platform domain.Platform, group categoryGroup) domain.Candidate {
	match := audienceMatch(product, platform, group)
	c := domain.Candidate{
		Platform:   platform,
		Confidence: fallbackConfidence(match),
		Attributes: map[string]string{
			domain.AttrReason:        recommendationReason(product, platform),
			domain.AttrAudienceMatch: strconv.FormatFloat(match, 'f', 2, 64),
		},
	}

	if platform == domain.PlatformAmazon {
		rate, ok := amazonRates[group]
		if !ok {
			rate = amazonDefaultRate
		}
		c.Name = AmazonProgramName
		c.CommissionRate = rate
		c.CookieDays = AmazonCookieDays
		c.URL = AmazonProgramURL
		return c
	}

	prog, ok := platformPrograms[platform]
	if !ok {
		prog = brandDirect
	}
	c.Name = prog.name
	c.CommissionRate = prog.commission
	c.CookieDays = prog.cookieDays
	if prog.urlPrefix != "" {
		c.URL = prog.urlPrefix + product.Slug()
	} else {
		c.URL = product.ProductURL
	}
	return c
}

func recommendationReason(product *domain.Product, platform domain.Platform) string {
	minAge, maxAge := product.AgeRange()
	category := product.Category

	switch platform {
	case domain.PlatformTikTok:
		return fmt.Sprintf("Strong match for ages %d-%d, %s performs well on TikTok", minAge, maxAge, category)
	case domain.PlatformInstagram:
		return fmt.Sprintf("Ideal for ages %d-%d, visual platform for %s", minAge, maxAge, category)
	case domain.PlatformYouTube:
		return fmt.Sprintf("Great for ages %d-%d, detailed reviews boost %s sales", minAge, maxAge, category)
	case domain.PlatformPinterest:
		return fmt.Sprintf("Perfect for ages %d-%d, discovery-driven for %s", minAge, maxAge, category)
	case domain.PlatformAmazon:
		return fmt.Sprintf("Universal platform for ages %d-%d, broad %s reach", minAge, maxAge, category)
	case domain.PlatformFacebook, domain.PlatformGeneric:
	}
	return fmt.Sprintf("Good match for ages %d-%d", minAge, maxAge)
}

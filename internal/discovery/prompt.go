package discovery

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

const promptTemplate = `You are an expert affiliate marketing analyst. Find the best affiliate programs for the product below on %s.

Product Information:
- Name: %s
- Category: %s
- Description: %s
- Price Range: %s (%s tier)
- Target Audience: %s (ages %d-%d)
- Trending Score: %d

Platform notes:
- TikTok Shop: viral potential, ages 18-35, trending products
- Instagram Shopping: visual appeal, ages 25-45, lifestyle fit
- Amazon Associates: broad reach, all ages, convenience
- YouTube Shopping: educational reviews, ages 25-55, detailed products
- Pinterest: inspiration, ages 30-50, home, DIY and fashion

Return ONLY a JSON array, best program first, at most 5 entries:
[
  {
    "program_name": "Program name",
    "platform": "%s",
    "commission_rate": 0.00,
    "cookie_duration": 30,
    "affiliate_url": "https://example.com/affiliate",
    "is_official": true,
    "confidence_score": 0.95,
    "audience_match_score": 0.90,
    "recommendation_reason": "Strong age match (18-25)"
  }
]

Rules:
- commission_rate and confidence_score are fractions between 0 and 1
- weigh audience match by age alignment (50%%), category fit (25%%), trending (15%%), price (10%%)
- only include legitimate programs for %s
- no explanatory text, only the JSON array`

func buildPrompt(product *domain.Product, platform domain.Platform) string {
	target := string(platform)
	if platform == domain.PlatformGeneric {
		target = "brand-direct and independent networks"
	}
	minAge, maxAge := product.AgeRange()

	return fmt.Sprintf(promptTemplate,
		target,
		product.Name,
		product.Category,
		orUnknown(product.Description),
		orUnknown(product.PriceRange), product.PriceTier(),
		orUnknown(product.TargetAudience), minAge, maxAge,
		product.TrendingScore,
		platform,
		target,
	)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

// programReply is one element of the oracle's JSON array.
type programReply struct {
	ProgramName          string   `json:"program_name"`
	Platform             string   `json:"platform"`
	CommissionRate       *float64 `json:"commission_rate"`
	CookieDuration       float64  `json:"cookie_duration"`
	AffiliateURL         string   `json:"affiliate_url"`
	IsOfficial           bool     `json:"is_official"`
	ConfidenceScore      *float64 `json:"confidence_score"`
	AudienceMatchScore   *float64 `json:"audience_match_score"`
	RecommendationReason string   `json:"recommendation_reason"`
}

// decodeProgram decodes one reply element. Elements without a name, a
// commission or a confidence are invalid.
func decodeProgram(raw json.RawMessage) (domain.Candidate, bool) {
	var r programReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Candidate{}, false
	}
	name := strings.TrimSpace(r.ProgramName)
	if name == "" || r.CommissionRate == nil || r.ConfidenceScore == nil {
		return domain.Candidate{}, false
	}

	c := domain.Candidate{
		Name:           name,
		Platform:       replyPlatform(r.Platform),
		CommissionRate: *r.CommissionRate,
		CookieDays:     int(math.Round(r.CookieDuration)),
		URL:            strings.TrimSpace(r.AffiliateURL),
		IsOfficial:     r.IsOfficial,
		Confidence:     *r.ConfidenceScore,
	}
	attrs := map[string]string{}
	if reason := strings.TrimSpace(r.RecommendationReason); reason != "" {
		attrs[domain.AttrReason] = reason
	}
	if r.AudienceMatchScore != nil {
		attrs[domain.AttrAudienceMatch] = fmt.Sprintf("%.2f", domain.ClampUnit(*r.AudienceMatchScore))
	}
	if len(attrs) > 0 {
		c.Attributes = attrs
	}
	return c, true
}

// replyPlatform maps names like "TikTok Shop" or "Amazon Associates" onto a
// known platform. Unknown names are kept lowercased so forPlatform drops them.
func replyPlatform(raw string) domain.Platform {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, raw)
	if compact == "" {
		return ""
	}
	for _, p := range domain.AllPlatforms {
		if strings.HasPrefix(compact, string(p)) {
			return p
		}
	}
	return domain.Platform(strings.ToLower(strings.TrimSpace(raw)))
}

package adcopy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/resolver"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
)

// Defaults used in reasoning when a candidate carries no attribute.
const (
	defaultTone        = "friendly and engaging"
	defaultAudience    = "general shoppers"
	defaultCompetition = "medium"
	defaultCategory    = "general"
)

// maxAlternatives caps the runner-up list.
const maxAlternatives = 3

// alternateStep is the confidence gap between static alternates.
const alternateStep = 0.08

func adRule(adType domain.AdType, confidence float64, tone, competition string, keywords ...string) resolver.Rule {
	return resolver.Rule{
		Keywords:  keywords,
		Candidate: adCandidate(adType, confidence, tone, competition),
	}
}

func adCandidate(adType domain.AdType, confidence float64, tone, competition string) domain.Candidate {
	return domain.Candidate{
		Name:       string(adType),
		Confidence: confidence,
		Attributes: map[string]string{
			domain.AttrTone:        tone,
			domain.AttrCompetition: competition,
		},
	}
}

// fallbackTable recommends a format from category keywords. First match wins.
var fallbackTable = resolver.Table{
	Rules: []resolver.Rule{
		adRule(domain.AdTypeStory, 0.92, "casual and trendy", "high", "beauty", "skincare", "cosmetic"),
		adRule(domain.AdTypeCarousel, 0.90, "aspirational and visual", "high", "fashion", "apparel", "clothing", "jewelry"),
		adRule(domain.AdTypeVideoScript, 0.88, "energetic and demonstrative", "medium", "electronics", "tech", "gadget", "wearable"),
		adRule(domain.AdTypeVideoScript, 0.86, "motivating and energetic", "medium", "fitness", "sport", "recovery"),
		adRule(domain.AdTypeCarousel, 0.84, "warm and inspiring", "low", "home", "kitchen", "decor"),
		adRule(domain.AdTypeEmail, 0.82, "professional and trustworthy", "medium", "health", "wellness", "supplement"),
		adRule(domain.AdTypeSMS, 0.78, "urgent and direct", "low", "food", "grocery", "beverage"),
	},
	Generic: adCandidate(domain.AdTypeSocialPost, 0.75, defaultTone, "low"),
}

// staticAlternates lists runner-up formats when the table produced a single
// winner.
var staticAlternates = map[domain.AdType][]domain.AdType{
	domain.AdTypeStory:       {domain.AdTypeSocialPost, domain.AdTypeCarousel, domain.AdTypeVideoScript},
	domain.AdTypeCarousel:    {domain.AdTypeStory, domain.AdTypeSocialPost, domain.AdTypeEmail},
	domain.AdTypeVideoScript: {domain.AdTypeStory, domain.AdTypeCarousel, domain.AdTypeSocialPost},
	domain.AdTypeEmail:       {domain.AdTypeVideoScript, domain.AdTypeSMS, domain.AdTypeSocialPost},
	domain.AdTypeSMS:         {domain.AdTypeEmail, domain.AdTypeSocialPost, domain.AdTypeStory},
	domain.AdTypeSocialPost:  {domain.AdTypeStory, domain.AdTypeCarousel, domain.AdTypeEmail},
}

const analyzePromptTemplate = `You are an advertising strategist. Recommend ad formats for this product.

Product:
- Name: %s
- Category: %s
- Description: %s
- Price Range: %s
- Target Audience: %s
- Trending Score: %d
- Listed on: %s

Formats: social_post, story, video_script, carousel, email, sms.

Return ONLY a JSON array, best format first, at most 4 entries:
[
  {
    "ad_type": "story",
    "confidence": 0.90,
    "tone": "casual and trendy",
    "audience": "women 18-34",
    "competition_level": "high",
    "reasoning": "Short, visual and native to the platforms listed"
  }
]`

type adReply struct {
	AdType           string   `json:"ad_type"`
	Confidence       *float64 `json:"confidence"`
	Tone             string   `json:"tone"`
	Audience         string   `json:"audience"`
	CompetitionLevel string   `json:"competition_level"`
	Reasoning        string   `json:"reasoning"`
}

// decodeAdCandidate accepts elements with a known ad type and a confidence.
func decodeAdCandidate(raw json.RawMessage) (domain.Candidate, bool) {
	var r adReply
	if err := json.Unmarshal(raw, &r); err != nil || r.Confidence == nil {
		return domain.Candidate{}, false
	}
	adType, err := domain.ParseAdType(r.AdType)
	if err != nil {
		return domain.Candidate{}, false
	}

	attrs := map[string]string{}
	for k, v := range map[string]string{
		domain.AttrTone:        r.Tone,
		domain.AttrAudience:    r.Audience,
		domain.AttrCompetition: r.CompetitionLevel,
		domain.AttrReason:      r.Reasoning,
	} {
		if v = strings.TrimSpace(v); v != "" {
			attrs[k] = v
		}
	}
	return domain.Candidate{Name: string(adType), Confidence: *r.Confidence, Attributes: attrs}, true
}

func analyzePrompt(p *domain.Product) string {
	listed := "no marketplace listings"
	if ps := p.Platforms(); len(ps) > 0 {
		names := make([]string, len(ps))
		for i, platform := range ps {
			names[i] = string(platform)
		}
		listed = strings.Join(names, ", ")
	}
	return fmt.Sprintf(analyzePromptTemplate,
		p.Name, p.Category, p.Description, p.PriceRange, p.TargetAudience, p.TrendingScore, listed)
}

// Analyze recommends an ad format for product.
func (s *Service) Analyze(ctx context.Context, product *domain.Product) (result *domain.RecommendationResult, err error) {
	if product == nil {
		return nil, ErrNilProduct
	}

	ctx, span := s.telemetry.StartSpan(ctx, "adcopy.analyze", attribute.Int64("product.id", product.ID))
	defer func() { telemetry.EndSpan(span, err) }()

	source := resolver.SourceOracle
	if s.cfg.Static {
		source = resolver.SourceStatic
	}
	res, err := s.resolver.Resolve(ctx, resolver.Request{
		Operation: "ads.analyze",
		Prompt:    analyzePrompt(product),
		Source:    source,
		Decode:    decodeAdCandidate,
		Fallback:  fallbackTable,
		Subject:   product.Category,
	})
	if err != nil {
		return nil, err
	}

	candidates := res.Candidates
	recSource := domain.SourceOracle
	if res.Fallback || len(candidates) == 0 {
		recSource = domain.SourceFallback
	}
	if len(candidates) == 0 {
		candidates = resolver.Rank([]domain.Candidate{fallbackTable.Match(product.Category)})
	}

	winner := candidates[0]
	adType := domain.AdType(winner.Name)
	rec := &domain.RecommendationResult{
		ProductID:    product.ID,
		AdType:       adType,
		Confidence:   domain.ClampUnit(winner.Confidence),
		Alternatives: alternatives(adType, winner.Confidence, candidates[1:]),
		Tone:         attrOr(winner, domain.AttrTone, defaultTone),
		Audience:     audienceOf(winner, product),
		Competition:  attrOr(winner, domain.AttrCompetition, defaultCompetition),
		Source:       recSource,
	}
	rec.Reasoning = reasoning(rec, product)

	s.log.Debug("Ad format recommended",
		logger.ProductID(product.ID),
		logger.String("ad_type", string(rec.AdType)),
		logger.Float64("confidence", rec.Confidence),
		logger.String("source", string(rec.Source)),
	)
	return rec, nil
}

// alternatives lists the runner-ups, one per ad type. A lone winner gets the
// static alternates at descending confidence.
func alternatives(winner domain.AdType, winnerConfidence float64, rest []domain.Candidate) []domain.AdAlternative {
	out := make([]domain.AdAlternative, 0, maxAlternatives)
	seen := map[domain.AdType]bool{winner: true}
	for _, c := range rest {
		t := domain.AdType(c.Name)
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, domain.AdAlternative{AdType: t, Confidence: domain.ClampUnit(c.Confidence)})
		if len(out) == maxAlternatives {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	for i, t := range staticAlternates[winner] {
		out = append(out, domain.AdAlternative{
			AdType:     t,
			Confidence: domain.ClampUnit(winnerConfidence - alternateStep*float64(i+1)),
		})
	}
	return out
}

func attrOr(c domain.Candidate, key, fallback string) string {
	if v := c.Attr(key); v != "" {
		return v
	}
	return fallback
}

func audienceOf(c domain.Candidate, p *domain.Product) string {
	if v := c.Attr(domain.AttrAudience); v != "" {
		return v
	}
	if v := strings.TrimSpace(p.TargetAudience); v != "" {
		return v
	}
	return defaultAudience
}

// reasoning is deterministic for a given recommendation and product.
func reasoning(rec *domain.RecommendationResult, p *domain.Product) string {
	category := strings.TrimSpace(p.Category)
	if category == "" {
		category = defaultCategory
	}
	return fmt.Sprintf("%s suits the %s category at %.0f%% confidence. Use a %s tone for %s; competition is %s.",
		rec.AdType.DisplayName(), category, rec.Confidence*100, rec.Tone, rec.Audience, rec.Competition)
}

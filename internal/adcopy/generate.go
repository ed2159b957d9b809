package adcopy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/resolver"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
)

// multiPlatform is the target platform of products listed nowhere.
const multiPlatform = "multi"

const copyPromptTemplate = `You are an expert affiliate copywriter. Write one %s ad.

Product:
- Name: %s
- Category: %s
- Description: %s
- Price Range: %s
- Target Audience: %s
- Key selling points: %s

Format guidance: %s
Tone: %s
%s
Return ONLY a JSON object:
{"headline": "...", "body": "...", "cta": "..."}`

type copyReply struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
	CTA      string `json:"cta"`
}

// Generate writes and stores a new ad copy. A nil adType uses Analyze's
// recommendation. Oracle trouble falls back to template copy; only store
// errors and the caller's cancellation are returned.
func (s *Service) Generate(
	ctx context.Context,
	product *domain.Product,
	adType *domain.AdType,
	instructions string,
) (saved *domain.GeneratedAdCopy, err error) {
	if product == nil {
		return nil, ErrNilProduct
	}
	if adType != nil && !adType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAdType, *adType)
	}

	ctx, span := s.telemetry.StartSpan(ctx, "adcopy.generate", attribute.Int64("product.id", product.ID))
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		chosen      domain.AdType
		tone        string
		competition string
		score       *float64
	)
	if adType == nil {
		rec, analyzeErr := s.Analyze(ctx, product)
		if analyzeErr != nil {
			return nil, analyzeErr
		}
		chosen, tone, competition = rec.AdType, rec.Tone, rec.Competition
		perf := math.Round(rec.Confidence*10000) / 100
		score = &perf
	} else {
		chosen = *adType
		rule := fallbackTable.Match(product.Category)
		tone = attrOr(rule, domain.AttrTone, defaultTone)
		competition = attrOr(rule, domain.AttrCompetition, defaultCompetition)
	}

	headline, body, cta, source, err := s.write(ctx, product, chosen, tone, instructions)
	if err != nil {
		return nil, err
	}

	platformData, err := json.Marshal(domain.PlatformData{
		TargetPlatform:   targetPlatform(product),
		SuggestedTone:    tone,
		CompetitionLevel: competition,
	})
	if err != nil {
		return nil, fmt.Errorf("encode platform data: %w", err)
	}

	saved, err = s.store.InsertAdCopy(ctx, &domain.GeneratedAdCopy{
		ProductID:          product.ID,
		AdType:             chosen,
		Headline:           headline,
		Body:               body,
		CTA:                cta,
		PlatformData:       platformData,
		PerformanceScore:   score,
		CustomInstructions: strings.TrimSpace(instructions),
		Source:             source,
	})
	if err != nil {
		return nil, fmt.Errorf("store ad copy for product %d: %w", product.ID, err)
	}

	s.telemetry.RecordAdCopy(string(chosen), string(source))
	s.log.Info("Ad copy generated",
		logger.ProductID(product.ID),
		logger.Int64("ad_copy_id", saved.ID),
		logger.String("ad_type", string(chosen)),
		logger.String("source", string(source)),
	)
	return saved, nil
}

// write asks the oracle for copy and falls back to the template.
func (s *Service) write(
	ctx context.Context,
	p *domain.Product,
	adType domain.AdType,
	tone, instructions string,
) (headline, body, cta string, source domain.Source, err error) {
	if s.cfg.Static || s.oracle == nil {
		headline, body, cta = templateCopy(p, instructions)
		return headline, body, cta, domain.SourceTemplate, nil
	}

	raw, invokeErr := s.oracle.Invoke(ctx, copyPrompt(p, adType, tone, instructions), s.cfg.Timeout)
	if invokeErr == nil {
		if reply, ok := parseCopy(raw); ok {
			return reply.Headline, reply.Body, reply.CTA, domain.SourceOracle, nil
		}
		invokeErr = errors.New("reply missing headline, body or cta")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", "", "", "", ctxErr
	}

	s.telemetry.RecordFallback("ads.generate", "template")
	s.log.Warn("Using template ad copy",
		logger.ProductID(p.ID),
		logger.String("ad_type", string(adType)),
		logger.Error(invokeErr),
	)
	headline, body, cta = templateCopy(p, instructions)
	return headline, body, cta, domain.SourceTemplate, nil
}

func parseCopy(raw string) (copyReply, bool) {
	obj, err := resolver.ExtractObject(raw)
	if err != nil {
		return copyReply{}, false
	}
	var r copyReply
	if err := json.Unmarshal(obj, &r); err != nil {
		return copyReply{}, false
	}
	r.Headline = strings.TrimSpace(r.Headline)
	r.Body = strings.TrimSpace(r.Body)
	r.CTA = strings.TrimSpace(r.CTA)
	if r.Headline == "" || r.Body == "" || r.CTA == "" {
		return copyReply{}, false
	}
	return r, true
}

func copyPrompt(p *domain.Product, adType domain.AdType, tone, instructions string) string {
	extra := ""
	if in := strings.TrimSpace(instructions); in != "" {
		extra = "Additional instructions: " + in + "\n"
	}
	return fmt.Sprintf(copyPromptTemplate,
		adType.DisplayName(),
		p.Name, p.Category, p.Description, p.PriceRange, p.TargetAudience,
		strings.Join(SellingPoints(p), "; "),
		adType.Guidance(),
		tone,
		extra,
	)
}

func targetPlatform(p *domain.Product) string {
	if ps := p.Platforms(); len(ps) > 0 {
		return string(ps[0])
	}
	return multiPlatform
}

package adcopy

import (
	"strings"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// templateCTA is the call to action of template copy.
const templateCTA = "Shop Now"

// sellingPointCount is how many points go into template copy.
const sellingPointCount = 3

var sellingPointTable = []struct {
	keywords []string
	points   []string
}{
	{[]string{"beauty", "skincare", "cosmetic"}, []string{
		"Clinically proven results", "Natural, clean ingredients", "Visible improvement in weeks", "%s loved by thousands",
	}},
	{[]string{"wearable", "electronics", "tech", "gadget"}, []string{
		"Cutting-edge technology", "Seamless integration", "Track your progress", "Premium build quality",
	}},
	{[]string{"fitness", "sport", "recovery"}, []string{
		"Accelerate your recovery", "Professional-grade quality", "Used by athletes worldwide", "See results faster",
	}},
	{[]string{"health", "wellness", "supplement"}, []string{
		"Science-backed formula", "Supports overall wellbeing", "Easy to incorporate daily", "Trusted by health experts",
	}},
	{[]string{"fashion", "apparel", "clothing", "jewelry"}, []string{
		"Trendsetting style", "Premium materials", "Versatile for any occasion", "Limited availability",
	}},
	{[]string{"home", "kitchen", "decor"}, []string{
		"Transform your space", "Built to last", "Saves time and effort", "Top-rated by customers",
	}},
}

var defaultSellingPoints = []string{
	"Premium quality", "Exceptional value", "Customer favorite", "Discover why %s is trending",
}

// SellingPoints returns category selling points with the product name filled in.
func SellingPoints(p *domain.Product) []string {
	points := defaultSellingPoints
	category := strings.ToLower(p.Category)
outer:
	for _, row := range sellingPointTable {
		for _, kw := range row.keywords {
			if strings.Contains(category, kw) {
				points = row.points
				break outer
			}
		}
	}

	out := make([]string, len(points))
	for i, pt := range points {
		out[i] = strings.ReplaceAll(pt, "%s", p.Name)
	}
	return out
}

// templateCopy is the deterministic copy used whenever the oracle cannot write it.
func templateCopy(p *domain.Product, instructions string) (headline, body, cta string) {
	points := SellingPoints(p)[:sellingPointCount]

	parts := make([]string, 0, 4)
	if d := strings.TrimSpace(p.Description); d != "" {
		parts = append(parts, ensurePeriod(d))
	}
	if c := strings.TrimSpace(p.Category); c != "" {
		parts = append(parts, "A standout pick in "+c+".")
	}
	parts = append(parts, strings.Join(points, ". ")+".")
	if in := strings.TrimSpace(instructions); in != "" {
		parts = append(parts, ensurePeriod(in))
	}

	return "Discover " + p.Name, strings.Join(parts, " "), templateCTA
}

func ensurePeriod(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

package discovery

import (
	"math"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Audience-match weights.
const (
	ageWeight      = 0.50
	categoryWeight = 0.25
	trendingWeight = 0.15
	priceWeight    = 0.10
)

// Fallback confidence band. An audience match of 1.0 maps to the top.
const (
	minFallbackConfidence = 0.75
	maxFallbackConfidence = 0.92
)

// categoryGroup is a keyword bucket for product categories. Order matters:
// "Wearable Health Technology" must land in wearable, not health or electronics.
type categoryGroup string

const (
	groupWearable    categoryGroup = "wearable"
	groupBeauty      categoryGroup = "beauty"
	groupFashion     categoryGroup = "fashion"
	groupFitness     categoryGroup = "fitness"
	groupHealth      categoryGroup = "health"
	groupElectronics categoryGroup = "electronics"
	groupHome        categoryGroup = "home"
	groupOther       categoryGroup = ""
)

var categoryKeywords = []struct {
	group    categoryGroup
	keywords []string
}{
	{groupWearable, []string{"wearable"}},
	{groupBeauty, []string{"beauty", "skincare", "cosmetic"}},
	{groupFashion, []string{"fashion", "apparel", "clothing", "jewelry"}},
	{groupFitness, []string{"fitness", "recovery", "sport"}},
	{groupHealth, []string{"health", "wellness", "supplement"}},
	{groupElectronics, []string{"electronics", "tech", "gadget"}},
	{groupHome, []string{"home", "kitchen", "decor"}},
}

var categoryFit = map[domain.Platform]map[categoryGroup]float64{
	domain.PlatformTikTok: {
		groupBeauty: 1.0, groupFashion: 1.0,
		groupHealth: 0.9, groupFitness: 0.9,
		groupWearable: 0.8, groupElectronics: 0.7,
		groupOther: 0.5,
	},
	domain.PlatformInstagram: {
		groupBeauty: 1.0, groupFashion: 1.0,
		groupHome: 0.9, groupHealth: 0.9,
		groupFitness: 0.8,
		groupOther:   0.6,
	},
	domain.PlatformYouTube: {
		groupElectronics: 1.0, groupWearable: 1.0,
		groupFitness: 0.9, groupHealth: 0.9,
		groupHome:  0.8,
		groupOther: 0.7,
	},
	domain.PlatformPinterest: {
		groupHome: 1.0, groupFashion: 1.0,
		groupBeauty: 0.9,
		groupHealth: 0.8,
		groupOther:  0.6,
	},
	domain.PlatformAmazon: {groupOther: 1.0},
}

func fitFor(platform domain.Platform, group categoryGroup) float64 {
	fits, ok := categoryFit[platform]
	if !ok {
		return 0.5
	}
	if v, ok := fits[group]; ok {
		return v
	}
	return fits[groupOther]
}

func ageAlignment(platform domain.Platform, minAge, maxAge int) float64 {
	avg := (minAge + maxAge) / 2

	switch platform {
	case domain.PlatformTikTok:
		switch {
		case avg >= 18 && avg <= 30:
			return 1.0
		case avg < 35:
			return 0.8
		case avg < 40:
			return 0.5
		default:
			return 0.2
		}
	case domain.PlatformInstagram:
		switch {
		case avg >= 22 && avg <= 40:
			return 1.0
		case avg >= 18 && avg <= 45:
			return 0.8
		case avg < 50:
			return 0.6
		default:
			return 0.3
		}
	case domain.PlatformYouTube:
		switch {
		case avg >= 25 && avg <= 55:
			return 1.0
		case avg >= 18:
			return 0.7
		default:
			return 0.4
		}
	case domain.PlatformPinterest:
		switch {
		case avg >= 30 && avg <= 50:
			return 1.0
		case avg >= 25 && avg <= 55:
			return 0.8
		default:
			return 0.4
		}
	case domain.PlatformAmazon:
		return 0.9
	case domain.PlatformFacebook, domain.PlatformGeneric:
	}
	return 0.5
}

func trendingFit(platform domain.Platform, score int) float64 {
	switch platform {
	case domain.PlatformTikTok:
		switch {
		case score >= 85:
			return 1.0
		case score >= 75:
			return 0.8
		case score >= 65:
			return 0.5
		default:
			return 0.3
		}
	case domain.PlatformInstagram:
		switch {
		case score >= 70:
			return 1.0
		case score >= 60:
			return 0.8
		default:
			return 0.6
		}
	case domain.PlatformYouTube, domain.PlatformPinterest:
		if score >= 60 {
			return 1.0
		}
		return 0.8
	case domain.PlatformAmazon:
		return 0.9
	case domain.PlatformFacebook, domain.PlatformGeneric:
	}
	return 0.5
}

func priceFit(platform domain.Platform, tier domain.PriceTier) float64 {
	switch platform {
	case domain.PlatformTikTok:
		switch tier {
		case domain.PriceTierHigh:
			return 0.6
		case domain.PriceTierPremium:
			return 0.3
		case domain.PriceTierLow, domain.PriceTierMedium:
		}
		return 1.0
	case domain.PlatformInstagram:
		if tier == domain.PriceTierPremium {
			return 0.7
		}
		return 1.0
	case domain.PlatformYouTube:
		if tier == domain.PriceTierLow {
			return 0.7
		}
		return 1.0
	case domain.PlatformPinterest:
		switch tier {
		case domain.PriceTierHigh:
			return 0.8
		case domain.PriceTierPremium:
			return 0.5
		case domain.PriceTierLow, domain.PriceTierMedium:
		}
		return 1.0
	case domain.PlatformAmazon:
		return 1.0
	case domain.PlatformFacebook, domain.PlatformGeneric:
	}
	return 0.5
}

// audienceMatch scores how well product suits platform, in [0,1], as if its
// category belonged to group.
func audienceMatch(product *domain.Product, platform domain.Platform, group categoryGroup) float64 {
	minAge, maxAge := product.AgeRange()
	score := ageAlignment(platform, minAge, maxAge)*ageWeight +
		fitFor(platform, group)*categoryWeight +
		trendingFit(platform, product.TrendingScore)*trendingWeight +
		priceFit(platform, product.PriceTier())*priceWeight
	return domain.ClampUnit(score)
}

// fallbackConfidence maps an audience match onto the fallback band.
func fallbackConfidence(match float64) float64 {
	c := minFallbackConfidence + (maxFallbackConfidence-minFallbackConfidence)*domain.ClampUnit(match)
	return math.Round(c*100) / 100
}

package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Product is a catalog item. The engine only reads products.
type Product struct {
	ID                 int64     `db:"id"                   json:"id"`
	Name               string    `db:"name"                 json:"name"`
	Category           string    `db:"category"             json:"category"`
	Description        string    `db:"description"          json:"description,omitempty"`
	PriceRange         string    `db:"price_range"          json:"price_range,omitempty"`
	TargetAudience     string    `db:"target_audience"      json:"target_audience,omitempty"`
	TrendingScore      int       `db:"trending_score"       json:"trending_score"`
	AmazonASIN         string    `db:"amazon_asin"          json:"amazon_asin,omitempty"`
	TikTokProductID    string    `db:"tiktok_product_id"    json:"tiktok_product_id,omitempty"`
	InstagramProductID string    `db:"instagram_product_id" json:"instagram_product_id,omitempty"`
	YouTubeVideoID     string    `db:"youtube_video_id"     json:"youtube_video_id,omitempty"`
	PinterestPinID     string    `db:"pinterest_pin_id"     json:"pinterest_pin_id,omitempty"`
	ProductURL         string    `db:"product_url"          json:"product_url,omitempty"`
	CreatedAt          time.Time `db:"created_at"           json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"           json:"updated_at"`
}

// identifierPlatforms is the fixed order Platforms reports.
var identifierPlatforms = []Platform{
	PlatformAmazon,
	PlatformTikTok,
	PlatformInstagram,
	PlatformYouTube,
	PlatformPinterest,
}

// IdentifierFor returns the product's id on platform, or "".
func (p *Product) IdentifierFor(platform Platform) string {
	switch platform {
	case PlatformAmazon:
		return strings.TrimSpace(p.AmazonASIN)
	case PlatformTikTok:
		return strings.TrimSpace(p.TikTokProductID)
	case PlatformInstagram:
		return strings.TrimSpace(p.InstagramProductID)
	case PlatformYouTube:
		return strings.TrimSpace(p.YouTubeVideoID)
	case PlatformPinterest:
		return strings.TrimSpace(p.PinterestPinID)
	case PlatformFacebook, PlatformGeneric:
		return ""
	}
	return ""
}

// Platforms lists the platforms the product has an identifier on.
func (p *Product) Platforms() []Platform {
	var out []Platform
	for _, platform := range identifierPlatforms {
		if p.IdentifierFor(platform) != "" {
			out = append(out, platform)
		}
	}
	return out
}

// CanonicalURL returns the product page on platform. Platforms without an
// identifier fall back to ProductURL.
func (p *Product) CanonicalURL(platform Platform) string {
	id := p.IdentifierFor(platform)
	if id == "" {
		return p.ProductURL
	}

	switch platform {
	case PlatformAmazon:
		return "https://www.amazon.com/dp/" + id
	case PlatformTikTok:
		return "https://shop.tiktok.com/view/product/" + id
	case PlatformInstagram:
		return "https://www.instagram.com/p/" + id
	case PlatformYouTube:
		return "https://www.youtube.com/watch?v=" + id
	case PlatformPinterest:
		return "https://www.pinterest.com/pin/" + id
	case PlatformFacebook, PlatformGeneric:
	}
	return p.ProductURL
}

// Slug is the lowercase hyphenated name used in fallback program URLs.
func (p *Product) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(p.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Default audience bounds when the audience text carries no range.
const (
	DefaultMinAge = 25
	DefaultMaxAge = 45
)

var ageRangePattern = regexp.MustCompile(`(?i)ages?\s+(\d+)\s*[-–]\s*(\d+)`)

// AgeRange parses "Ages 18-34" style audience text.
func (p *Product) AgeRange() (minAge, maxAge int) {
	m := ageRangePattern.FindStringSubmatch(p.TargetAudience)
	if m == nil {
		return DefaultMinAge, DefaultMaxAge
	}
	lo, errLo := strconv.Atoi(m[1])
	hi, errHi := strconv.Atoi(m[2])
	if errLo != nil || errHi != nil || lo > hi {
		return DefaultMinAge, DefaultMaxAge
	}
	return lo, hi
}

// PriceTier buckets the lower bound of PriceRange.
type PriceTier string

const (
	PriceTierLow     PriceTier = "Low"
	PriceTierMedium  PriceTier = "Medium"
	PriceTierHigh    PriceTier = "High"
	PriceTierPremium PriceTier = "Premium"
)

var priceNumberPattern = regexp.MustCompile(`\$?(\d+)`)

// PriceTier reads the first number in PriceRange ("$30-$40" is 30): under 50
// is Low, under 150 Medium, under 500 High, anything above Premium. Text
// without a number is Medium.
func (p *Product) PriceTier() PriceTier {
	m := priceNumberPattern.FindStringSubmatch(p.PriceRange)
	if m == nil {
		return PriceTierMedium
	}
	price, err := strconv.Atoi(m[1])
	if err != nil {
		return PriceTierMedium
	}

	switch {
	case price < 50:
		return PriceTierLow
	case price < 150:
		return PriceTierMedium
	case price < 500:
		return PriceTierHigh
	default:
		return PriceTierPremium
	}
}

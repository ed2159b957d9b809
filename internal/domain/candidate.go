package domain

import "math"

// Candidate is one ranked option from the resolver. For discovery Name is an
// affiliate program; for ad recommendation Name is an AdType.
type Candidate struct {
	Name           string            `json:"name"`
	Platform       Platform          `json:"platform,omitempty"`
	CommissionRate float64           `json:"commission_rate"`
	CookieDays     int               `json:"cookie_days"`
	URL            string            `json:"url,omitempty"`
	IsOfficial     bool              `json:"is_official"`
	Confidence     float64           `json:"confidence"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// Well-known attribute keys.
const (
	AttrTone          = "tone"
	AttrAudience      = "audience"
	AttrCompetition   = "competition"
	AttrReason        = "reason"
	AttrAudienceMatch = "audience_match"
)

// Attr returns an attribute or "".
func (c Candidate) Attr(key string) string {
	if c.Attributes == nil {
		return ""
	}
	return c.Attributes[key]
}

// Clamped returns a copy with confidence and commission in [0,1] and cookie
// days non-negative. NaN becomes 0.
func (c Candidate) Clamped() Candidate {
	c.Confidence = ClampUnit(c.Confidence)
	c.CommissionRate = ClampUnit(c.CommissionRate)
	if c.CookieDays < 0 {
		c.CookieDays = 0
	}
	return c
}

// ClampUnit clamps v to [0,1], mapping NaN to 0.
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

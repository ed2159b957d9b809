package domain

import (
	"strconv"
	"time"
)

// LinkStatus is the lifecycle state of an affiliate link.
type LinkStatus string

const (
	LinkStatusActive  LinkStatus = "active"
	LinkStatusExpired LinkStatus = "expired"
	LinkStatusInvalid LinkStatus = "invalid"
)

// Valid reports whether s is a known status.
func (s LinkStatus) Valid() bool {
	switch s {
	case LinkStatusActive, LinkStatusExpired, LinkStatusInvalid:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to next. Staying put is not a transition.
func (s LinkStatus) CanTransitionTo(next LinkStatus) bool {
	switch s {
	case LinkStatusActive:
		return next == LinkStatusExpired || next == LinkStatusInvalid
	case LinkStatusExpired:
		return next == LinkStatusInvalid
	case LinkStatusInvalid:
		return false
	}
	return false
}

// AffiliateLink is a persisted tracking link for one product on one platform.
type AffiliateLink struct {
	ID             int64      `db:"id"              json:"id"`
	ProductID      int64      `db:"product_id"      json:"product_id"`
	ProductName    string     `db:"product_name"    json:"product_name,omitempty"`
	Platform       Platform   `db:"platform"        json:"platform"`
	ProgramName    string     `db:"program_name"    json:"program_name"`
	CommissionRate float64    `db:"commission_rate" json:"commission_rate"`
	CookieDays     int        `db:"cookie_days"     json:"cookie_days"`
	TrackingURL    string     `db:"tracking_url"    json:"tracking_url"`
	DestinationURL string     `db:"destination_url" json:"destination_url"`
	IsOfficial     bool       `db:"is_official"     json:"is_official"`
	Status         LinkStatus `db:"status"          json:"status"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

// LinkKey identifies the (product, platform) pair a link belongs to.
type LinkKey struct {
	ProductID int64    `db:"product_id" json:"product_id"`
	Platform  Platform `db:"platform"   json:"platform"`
}

// String renders "productID:platform", the serialization key for generation.
func (k LinkKey) String() string {
	return strconv.FormatInt(k.ProductID, 10) + ":" + string(k.Platform)
}

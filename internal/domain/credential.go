package domain

import "strings"

// Credential is the account used to earn commission on a platform.
type Credential struct {
	Platform    Platform `db:"platform"     json:"platform"`
	AffiliateID string   `db:"affiliate_id" json:"affiliate_id,omitempty"`
	ShopID      string   `db:"shop_id"      json:"shop_id,omitempty"`
	AccountName string   `db:"account_name" json:"account_name,omitempty"`
	Active      bool     `db:"is_active"    json:"is_active"`
	Verified    bool     `db:"is_verified"  json:"is_verified"`
}

// TrackingID prefers the affiliate id and falls back to the shop id.
func (c *Credential) TrackingID() string {
	if c == nil {
		return ""
	}
	if id := strings.TrimSpace(c.AffiliateID); id != "" {
		return id
	}
	return strings.TrimSpace(c.ShopID)
}

// Usable reports whether the credential can be attached to a link.
func (c *Credential) Usable() bool {
	return c != nil && c.Active && c.TrackingID() != ""
}

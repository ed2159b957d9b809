package domain

import (
	"encoding/json"
	"time"
)

// Source records where a result came from.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
	SourceTemplate Source = "template"
)

// AdAlternative is a runner-up recommendation.
type AdAlternative struct {
	AdType     AdType  `json:"ad_type"`
	Confidence float64 `json:"confidence"`
}

// RecommendationResult is the outcome of analyzing a product for ad formats.
type RecommendationResult struct {
	ProductID    int64           `json:"product_id"`
	AdType       AdType          `json:"ad_type"`
	Confidence   float64         `json:"confidence"`
	Alternatives []AdAlternative `json:"alternatives"`
	Reasoning    string          `json:"reasoning"`
	Tone         string          `json:"tone,omitempty"`
	Audience     string          `json:"audience,omitempty"`
	Competition  string          `json:"competition,omitempty"`
	Source       Source          `json:"source"`
}

// PlatformData is stored as JSON alongside generated copy.
type PlatformData struct {
	TargetPlatform   string `json:"target_platform"`
	SuggestedTone    string `json:"suggested_tone,omitempty"`
	CompetitionLevel string `json:"competition_level,omitempty"`
}

// GeneratedAdCopy is one generation. Rows are only ever inserted.
type GeneratedAdCopy struct {
	ID                 int64           `db:"id"                  json:"id"`
	ProductID          int64           `db:"product_id"          json:"product_id"`
	AdType             AdType          `db:"ad_type"             json:"ad_type"`
	Headline           string          `db:"headline"            json:"headline"`
	Body               string          `db:"body"                json:"body"`
	CTA                string          `db:"cta"                 json:"cta"`
	PlatformData       json.RawMessage `db:"platform_data"       json:"platform_data,omitempty"`
	PerformanceScore   *float64        `db:"performance_score"   json:"performance_score,omitempty"`
	CustomInstructions string          `db:"custom_instructions" json:"custom_instructions,omitempty"`
	Source             Source          `db:"source"              json:"source"`
	CreatedAt          time.Time       `db:"created_at"          json:"created_at"`
}

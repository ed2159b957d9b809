package domain

import (
	"fmt"
	"strings"
)

// AdType is a creative format.
type AdType string

const (
	AdTypeSocialPost  AdType = "social_post"
	AdTypeStory       AdType = "story"
	AdTypeVideoScript AdType = "video_script"
	AdTypeCarousel    AdType = "carousel"
	AdTypeEmail       AdType = "email"
	AdTypeSMS         AdType = "sms"
)

// AllAdTypes lists every ad type.
var AllAdTypes = []AdType{
	AdTypeSocialPost,
	AdTypeStory,
	AdTypeVideoScript,
	AdTypeCarousel,
	AdTypeEmail,
	AdTypeSMS,
}

type adTypeInfo struct {
	display  string
	cta      string
	guidance string
}

var adTypes = map[AdType]adTypeInfo{
	AdTypeSocialPost: {
		display:  "Social Media Post",
		cta:      "Shop Now",
		guidance: "A short feed post with a hook, one benefit and two or three hashtags.",
	},
	AdTypeStory: {
		display:  "Story",
		cta:      "Swipe Up",
		guidance: "A vertical story in first person, urgent and casual, under 40 words.",
	},
	AdTypeVideoScript: {
		display:  "Video Script",
		cta:      "Link in Bio",
		guidance: "A 30 second script with [HOOK], [PROBLEM], [SOLUTION], [BENEFITS] and [CTA] beats.",
	},
	AdTypeCarousel: {
		display:  "Carousel",
		cta:      "Save for Later",
		guidance: "Five slides, one idea each, ending with a call to action.",
	},
	AdTypeEmail: {
		display:  "Email",
		cta:      "Shop Now",
		guidance: "A friendly email with a subject-style headline and a bulleted benefit list.",
	},
	AdTypeSMS: {
		display:  "SMS",
		cta:      "Reply STOP to unsubscribe",
		guidance: "One text message under 160 characters with a [LINK] placeholder.",
	},
}

// ParseAdType validates an ad type name, case-insensitively.
func ParseAdType(s string) (AdType, error) {
	t := AdType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := adTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAdType, s)
	}
	return t, nil
}

// Valid reports whether t is known.
func (t AdType) Valid() bool {
	_, ok := adTypes[t]
	return ok
}

// DisplayName is the human label.
func (t AdType) DisplayName() string { return adTypes[t].display }

// CTA is the format's native call to action.
func (t AdType) CTA() string { return adTypes[t].cta }

// Guidance describes the format for copy prompts.
func (t AdType) Guidance() string { return adTypes[t].guidance }

func (t AdType) String() string { return string(t) }

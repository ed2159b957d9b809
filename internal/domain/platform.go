// Package domain holds the engine entities, link status machine and error taxonomy.
package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Platform is a marketplace or social network a link targets.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformAmazon    Platform = "amazon"
	PlatformYouTube   Platform = "youtube"
	PlatformPinterest Platform = "pinterest"
	PlatformFacebook  Platform = "facebook"
	PlatformGeneric   Platform = "generic"
)

// AllPlatforms lists every known platform.
var AllPlatforms = []Platform{
	PlatformTikTok,
	PlatformInstagram,
	PlatformAmazon,
	PlatformYouTube,
	PlatformPinterest,
	PlatformFacebook,
	PlatformGeneric,
}

// ParsePlatform validates a platform name, case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, p := range AllPlatforms {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return slices.Contains(AllPlatforms, p)
}

func (p Platform) String() string { return string(p) }

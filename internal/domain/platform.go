package domain

import (
	"fmt"
	"strings"
)

// Platform identifies the upstream social network a record came from.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
)

// Platforms lists every supported platform in sync order.
var Platforms = []Platform{PlatformYouTube, PlatformInstagram, PlatformTwitter}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformYouTube, PlatformInstagram, PlatformTwitter:
		return true
	}
	return false
}

// Label returns the display name used in stored rows and responses.
func (p Platform) Label() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	case PlatformTwitter:
		return "Twitter"
	}
	return string(p)
}

func (p Platform) String() string {
	return string(p)
}

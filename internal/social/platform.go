// Package social turns profile URLs, scraped pages and OAuth payloads into
// canonical social link records.
package social

import (
	"net/url"
	"strings"
)

// Platform is a supported social network or contact channel.
type Platform string

const (
	Instagram Platform = "Instagram"
	Facebook  Platform = "Facebook"
	X         Platform = "X"
	LinkedIn  Platform = "LinkedIn"
	TikTok    Platform = "TikTok"
	YouTube   Platform = "YouTube"
	WhatsApp  Platform = "WhatsApp"
	Other     Platform = "Other"
)

// Provider is an OAuth identity provider backing a platform.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderFacebook  Provider = "facebook"
	ProviderInstagram Provider = "instagram"
	ProviderTwitter   Provider = "twitter"
	ProviderLinkedIn  Provider = "linkedin"
	ProviderTikTok    Provider = "tiktok"
)

// platformRule describes how URLs of one platform are recognized and parsed.
type platformRule struct {
	platform Platform
	hosts    []string
	extract  func(u *url.URL) Classification
	// skipEnrichment marks platforms that block anonymous page fetches.
	skipEnrichment bool
}

var platformRules = []platformRule{
	{platform: Instagram, hosts: []string{"instagram.com"}, extract: extractInstagram},
	{platform: Facebook, hosts: []string{"facebook.com", "fb.com"}, extract: extractFacebook},
	{platform: X, hosts: []string{"twitter.com", "x.com"}, extract: extractX},
	{platform: LinkedIn, hosts: []string{"linkedin.com"}, extract: extractLinkedIn, skipEnrichment: true},
	{platform: TikTok, hosts: []string{"tiktok.com"}, extract: extractTikTok},
	{platform: YouTube, hosts: []string{"youtube.com", "youtu.be"}, extract: extractYouTube},
	{platform: WhatsApp, hosts: []string{"wa.me", "whatsapp.com"}, extract: extractWhatsApp},
}

var platformAliases = map[string]Platform{
	"instagram": Instagram,
	"facebook":  Facebook,
	"x":         X,
	"twitter":   X,
	"linkedin":  LinkedIn,
	"tiktok":    TikTok,
	"youtube":   YouTube,
	"whatsapp":  WhatsApp,
	"other":     Other,
}

// ParsePlatform resolves a platform name case-insensitively.
func ParsePlatform(raw string) (Platform, bool) {
	p, ok := platformAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// Platforms lists every supported platform in display order.
func Platforms() []Platform {
	return []Platform{Instagram, Facebook, X, LinkedIn, TikTok, YouTube, WhatsApp, Other}
}

// Slug is the lowercase form used in URL paths.
func (p Platform) Slug() string {
	return strings.ToLower(string(p))
}

// SkipsEnrichment reports whether page scraping must never be attempted.
func (p Platform) SkipsEnrichment() bool {
	for _, rule := range platformRules {
		if rule.platform == p {
			return rule.skipEnrichment
		}
	}
	return false
}

func ruleForHost(host string) (platformRule, bool) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, rule := range platformRules {
		for _, domain := range rule.hosts {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return rule, true
			}
		}
	}
	return platformRule{}, false
}

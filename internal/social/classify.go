package social

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Identifier kinds reported by the classifier.
const (
	KindHandle       = "handle"
	KindNumericID    = "numeric_id"
	KindPersonal     = "personal"
	KindOrganization = "organization"
	KindChannel      = "channel"
	KindChannelID    = "channel_id"
	KindPhone        = "phone"
)

// Classification is the result of parsing a profile URL.
// An empty Identifier means the URL did not carry enough data.
type Classification struct {
	Platform    Platform
	Detected    Platform
	URL         string
	Identifier  string
	ProfileName string
	Hints       Hints
}

// Hints carries platform specific details discovered in the URL.
type Hints struct {
	Kind      string
	ChannelID string
	Phone     string
}

// Classify parses a free-form profile URL. It performs no network I/O and
// never fails: unknown hosts and malformed input yield an empty Identifier.
func Classify(rawURL string, p Platform) Classification {
	result := Classification{Platform: p}

	normalized := NormalizeURL(rawURL)
	if normalized == "" {
		return result
	}
	result.URL = normalized

	u, err := url.Parse(normalized)
	if err != nil || u.Hostname() == "" {
		return result
	}

	rule, ok := ruleForHost(u.Hostname())
	if !ok {
		return result
	}

	extracted := rule.extract(u)
	extracted.Platform = p
	extracted.Detected = rule.platform
	extracted.URL = normalized
	return extracted
}

// NormalizeURL prepends https:// when the scheme is missing and
// percent-decodes the whole URL.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		trimmed = "https://" + strings.TrimPrefix(trimmed, "//")
	}

	if decoded, err := url.PathUnescape(trimmed); err == nil {
		return decoded
	}
	return trimmed
}

func pathSegments(u *url.URL) []string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func firstSegment(u *url.URL) string {
	segments := pathSegments(u)
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}

var instagramReserved = map[string]bool{
	"p": true, "reel": true, "reels": true, "stories": true,
	"explore": true, "accounts": true, "direct": true,
}

func extractInstagram(u *url.URL) Classification {
	handle := strings.TrimPrefix(firstSegment(u), "@")
	if handle == "" || instagramReserved[strings.ToLower(handle)] {
		return Classification{}
	}
	return Classification{Identifier: "@" + handle, Hints: Hints{Kind: KindHandle}}
}

func extractFacebook(u *url.URL) Classification {
	first := firstSegment(u)
	if strings.EqualFold(first, "profile.php") {
		id := strings.TrimSpace(u.Query().Get("id"))
		if id == "" || !isDigits(id) {
			return Classification{}
		}
		return Classification{Identifier: "ID: " + id, Hints: Hints{Kind: KindNumericID}}
	}
	if first == "" {
		return Classification{}
	}
	return Classification{Identifier: first, Hints: Hints{Kind: KindHandle}}
}

var xReserved = map[string]bool{
	"home": true, "i": true, "intent": true, "search": true, "hashtag": true,
}

func extractX(u *url.URL) Classification {
	handle := strings.TrimPrefix(firstSegment(u), "@")
	if handle == "" || xReserved[strings.ToLower(handle)] {
		return Classification{}
	}
	return Classification{Identifier: "@" + handle, Hints: Hints{Kind: KindHandle}}
}

func extractLinkedIn(u *url.URL) Classification {
	segments := pathSegments(u)
	for i := 0; i+1 < len(segments); i++ {
		var kind string
		switch strings.ToLower(segments[i]) {
		case "in":
			kind = KindPersonal
		case "company":
			kind = KindOrganization
		default:
			continue
		}
		id := segments[i+1]
		return Classification{
			Identifier:  id,
			ProfileName: titleFromSlug(id),
			Hints:       Hints{Kind: kind},
		}
	}
	return Classification{}
}

func extractTikTok(u *url.URL) Classification {
	handle := strings.TrimPrefix(firstSegment(u), "@")
	if handle == "" {
		return Classification{}
	}
	return Classification{Identifier: "@" + handle, Hints: Hints{Kind: KindHandle}}
}

func extractYouTube(u *url.URL) Classification {
	// youtu.be only carries video ids.
	if strings.EqualFold(u.Hostname(), "youtu.be") {
		return Classification{}
	}

	segments := pathSegments(u)
	if len(segments) == 0 {
		return Classification{}
	}

	first := segments[0]
	if strings.HasPrefix(first, "@") && len(first) > 1 {
		return Classification{Identifier: first, Hints: Hints{Kind: KindHandle}}
	}
	if len(segments) < 2 {
		return Classification{}
	}

	switch strings.ToLower(first) {
	case "c", "user":
		return Classification{Identifier: segments[1], Hints: Hints{Kind: KindChannel}}
	case "channel":
		return Classification{
			Identifier: segments[1],
			Hints:      Hints{Kind: KindChannelID, ChannelID: segments[1]},
		}
	}
	return Classification{}
}

func extractWhatsApp(u *url.URL) Classification {
	var raw string
	if strings.Contains(strings.ToLower(u.Hostname()), "whatsapp.com") {
		raw = u.Query().Get("phone")
	} else {
		raw = firstSegment(u)
	}

	phone := strings.TrimPrefix(strings.TrimSpace(raw), "+")
	if len(phone) < 7 || len(phone) > 15 || !isDigits(phone) {
		return Classification{}
	}

	return Classification{
		Identifier: FormatPhone(phone),
		Hints:      Hints{Kind: KindPhone, Phone: phone},
	}
}

// countryFormats lists country codes whose national numbers have a fixed
// length, longest code first.
var countryFormats = []struct {
	code   string
	groups []int
}{
	{code: "351", groups: []int{3, 3, 3}}, // Portugal
	{code: "34", groups: []int{3, 3, 3}},  // Spain
	{code: "33", groups: []int{1, 2, 2, 2, 2}},
	{code: "44", groups: []int{4, 6}},
	{code: "61", groups: []int{3, 3, 3}},
	{code: "1", groups: []int{3, 3, 4}},
}

// FormatPhone renders a digits-only international number, e.g.
// 34600111222 becomes +34 600 111 222. Unknown prefixes yield +<digits>.
func FormatPhone(digits string) string {
	for _, format := range countryFormats {
		national, ok := strings.CutPrefix(digits, format.code)
		if !ok || len(national) != sum(format.groups) {
			continue
		}

		var b strings.Builder
		b.WriteString("+")
		b.WriteString(format.code)
		offset := 0
		for _, size := range format.groups {
			b.WriteString(" ")
			b.WriteString(national[offset : offset+size])
			offset += size
		}
		return b.String()
	}
	return "+" + digits
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// titleFromSlug turns "jane-doe" into "Jane Doe".
func titleFromSlug(slug string) string {
	tokens := strings.Split(slug, "-")
	words := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		first, size := utf8.DecodeRuneInString(token)
		words = append(words, string(unicode.ToUpper(first))+strings.ToLower(token[size:]))
	}
	return strings.Join(words, " ")
}

package social

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInsufficientData is returned when a payload lacks a username or profile URL.
var ErrInsufficientData = errors.New("insufficient profile data")

// RawPayload is what an OAuth provider returned for the connected account.
type RawPayload struct {
	Provider Provider
	UserInfo json.RawMessage
	// Channels holds the YouTube channel listing for google. It is nil when
	// the secondary call failed.
	Channels json.RawMessage
}

// Normalized is the canonical link content ready for reconciliation.
type Normalized struct {
	Username   string
	ProfileURL string
	Data       *ProfileData
}

type payloadNormalizer func(p Platform, raw RawPayload) (Normalized, error)

var providerNormalizers = map[Provider]payloadNormalizer{
	ProviderGoogle:    normalizeGoogle,
	ProviderFacebook:  normalizeFacebook,
	ProviderInstagram: normalizeInstagram,
	ProviderTwitter:   normalizeTwitter,
	ProviderLinkedIn:  normalizeLinkedIn,
	ProviderTikTok:    normalizeTikTok,
}

// Normalize maps a provider payload onto canonical link fields.
func Normalize(p Platform, raw RawPayload) (Normalized, error) {
	normalizer, ok := providerNormalizers[raw.Provider]
	if !ok {
		return Normalized{}, fmt.Errorf("%w from %s: unsupported provider %q", ErrInsufficientData, p, raw.Provider)
	}

	n, err := normalizer(p, raw)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w from %s: %v", ErrInsufficientData, p, err)
	}
	n.Username = strings.TrimSpace(n.Username)
	if n.Username == "" || n.ProfileURL == "" {
		return Normalized{}, fmt.Errorf("%w from %s", ErrInsufficientData, p)
	}
	return n, nil
}

// NormalizeDraft builds link content from a URL draft. A non-empty override
// replaces the username found by the classifier.
func NormalizeDraft(d Draft, override string) (Normalized, error) {
	username := strings.TrimSpace(override)
	if username == "" {
		username = d.Username
	}
	if username == "" || d.URL == "" {
		return Normalized{}, fmt.Errorf("%w from %s", ErrInsufficientData, d.Platform)
	}

	n := Normalized{Username: username, ProfileURL: d.URL}
	if d.hasScrapedData() {
		n.Data = &ProfileData{
			Kind: KindScrapedPage,
			Page: &PageData{
				ProfileName:    d.ProfileName,
				Avatar:         d.Avatar,
				Bio:            d.Bio,
				Note:           d.Note,
				IdentifierKind: d.IdentifierKind,
				Phone:          d.Phone,
				ChannelID:      d.ChannelID,
			},
		}
	}
	return n, nil
}

type googleUserinfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type youtubeChannelList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			CustomURL   string `json:"customUrl"`
			Thumbnails  map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
			ViewCount       string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func normalizeGoogle(_ Platform, raw RawPayload) (Normalized, error) {
	if len(raw.Channels) > 0 {
		var channels youtubeChannelList
		if err := json.Unmarshal(raw.Channels, &channels); err == nil && len(channels.Items) > 0 {
			ch := channels.Items[0]
			data := &ChannelData{
				ChannelID:   ch.ID,
				Title:       ch.Snippet.Title,
				Description: ch.Snippet.Description,
				Subscribers: parseCount(ch.Statistics.SubscriberCount),
				Videos:      parseCount(ch.Statistics.VideoCount),
				Views:       parseCount(ch.Statistics.ViewCount),
			}
			for _, size := range []string{"high", "medium", "default"} {
				if thumb, ok := ch.Snippet.Thumbnails[size]; ok && thumb.URL != "" {
					data.Avatar = thumb.URL
					break
				}
			}

			n := Normalized{Data: &ProfileData{Kind: KindYouTubeChannel, Channel: data}}
			if custom := strings.TrimPrefix(strings.TrimSpace(ch.Snippet.CustomURL), "@"); custom != "" {
				n.Username = "@" + custom
				n.ProfileURL = "https://youtube.com/@" + url.PathEscape(custom)
			} else if ch.ID != "" {
				n.Username = ch.Snippet.Title
				n.ProfileURL = "https://youtube.com/channel/" + url.PathEscape(ch.ID)
			}
			if n.Username != "" && n.ProfileURL != "" {
				return n, nil
			}
		}
	}

	var info googleUserinfo
	if err := json.Unmarshal(raw.UserInfo, &info); err != nil {
		return Normalized{}, fmt.Errorf("decode userinfo: %w", err)
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name, _, _ = strings.Cut(strings.TrimSpace(info.Email), "@")
	}
	if name == "" {
		return Normalized{}, errors.New("google account has neither channel, name nor email")
	}

	return Normalized{
		Username:   name,
		ProfileURL: "https://youtube.com/@" + url.PathEscape(strings.ReplaceAll(name, " ", "")),
		Data: &ProfileData{
			Kind:    KindOAuthAccount,
			Account: &AccountData{Provider: ProviderGoogle, ProviderUserID: info.ID, DisplayName: info.Name},
		},
	}, nil
}

func normalizeFacebook(p Platform, raw RawPayload) (Normalized, error) {
	var info struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(raw.UserInfo, &info); err != nil {
		return Normalized{}, fmt.Errorf("decode userinfo: %w", err)
	}

	account := &ProfileData{
		Kind:    KindOAuthAccount,
		Account: &AccountData{Provider: ProviderFacebook, ProviderUserID: info.ID, DisplayName: info.Name},
	}

	// Instagram accounts linked through Facebook Login.
	if p == Instagram {
		if info.Username == "" {
			return Normalized{}, errors.New("facebook payload carries no instagram username")
		}
		return Normalized{
			Username:   "@" + info.Username,
			ProfileURL: "https://instagram.com/" + url.PathEscape(info.Username),
			Data:       account,
		}, nil
	}

	if info.ID == "" {
		return Normalized{}, errors.New("facebook payload carries no id")
	}
	return Normalized{
		Username:   info.Name,
		ProfileURL: "https://facebook.com/" + url.PathEscape(info.ID),
		Data:       account,
	}, nil
}

func normalizeInstagram(_ Platform, raw RawPayload) (Normalized, error) {
	var info struct {
		ID          string          `json:"id"`
		Username    string          `json:"username"`
		AccountType string          `json:"account_type"`
		MediaCount  json.RawMessage `json:"media_count"`
	}
	if err := json.Unmarshal(raw.UserInfo, &info); err != nil {
		return Normalized{}, fmt.Errorf("decode userinfo: %w", err)
	}
	handle := strings.TrimPrefix(strings.TrimSpace(info.Username), "@")
	if handle == "" {
		return Normalized{}, errors.New("instagram payload carries no username")
	}

	return Normalized{
		Username:   "@" + handle,
		ProfileURL: "https://instagram.com/" + url.PathEscape(handle),
		Data: &ProfileData{
			Kind: KindInstagramAccount,
			Instagram: &InstagramData{
				InstagramID: info.ID,
				AccountType: info.AccountType,
				MediaCount:  parseCount(strings.Trim(string(info.MediaCount), `"`)),
			},
		},
	}, nil
}

func normalizeTwitter(_ Platform, raw RawPayload) (Normalized, error) {
	var info struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw.UserInfo, &info); err != nil {
		return Normalized{}, fmt.Errorf("decode userinfo: %w", err)
	}
	handle := strings.TrimPrefix(strings.TrimSpace(info.Data.Username), "@")
	if handle == "" {
		return Normalized{}, errors.New("twitter payload carries no username")
	}

	return Normalized{
		Username:   "@" + handle,
		ProfileURL: "https://x.com/" + url.PathEscape(handle),
		Data: &ProfileData{
			Kind:    KindOAuthAccount,
			Account: &AccountData{Provider: ProviderTwitter, ProviderUserID: info.Data.ID, DisplayName: info.Data.Name},
		},
	}, nil
}

func normalizeLinkedIn(_ Platform, raw RawPayload) (Normalized, error) {
	var info struct {
		ID        string `json:"id"`
		FirstName string `json:"localizedFirstName"`
		LastName  string `json:"localizedLastName"`
	}
	if err := json.Unmarshal(raw.UserInfo, &info); err != nil {
		return Normalized{}, fmt.Errorf("decode userinfo: %w", err)
	}

	words := strings.Fields(info.FirstName + " " + info.LastName)
	if len(words) == 0 {
		return Normalized{}, errors.New("linkedin payload carries no name")
	}
	name := strings.Join(words, " ")
	slug := strings.ToLower(strings.Join(words, "-"))

	return Normalized{
		Username:   name,
		ProfileURL: "https://linkedin.com/in/" + url.PathEscape(slug),
		Data: &ProfileData{
			Kind:    KindOAuthAccount,
			Account: &AccountData{Provider: ProviderLinkedIn, ProviderUserID: info.ID, DisplayName: name},
		},
	}, nil
}

func normalizeTikTok(_ Platform, raw RawPayload) (Normalized, error) {
	var info struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				UniqueID    string `json:"unique_id"`
				DisplayName string `json:"display_name"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw.UserInfo, &info); err != nil {
		return Normalized{}, fmt.Errorf("decode userinfo: %w", err)
	}
	user := info.Data.User
	handle := strings.TrimPrefix(strings.TrimSpace(user.UniqueID), "@")
	if handle == "" {
		return Normalized{}, errors.New("tiktok payload carries no unique_id")
	}

	return Normalized{
		Username:   "@" + handle,
		ProfileURL: "https://tiktok.com/@" + url.PathEscape(handle),
		Data: &ProfileData{
			Kind:    KindOAuthAccount,
			Account: &AccountData{Provider: ProviderTikTok, ProviderUserID: user.OpenID, DisplayName: user.DisplayName},
		},
	}, nil
}

func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

package social

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DataKind tags the variant stored in ProfileData.
type DataKind string

const (
	KindYouTubeChannel   DataKind = "youtube_channel"
	KindInstagramAccount DataKind = "instagram_account"
	KindOAuthAccount     DataKind = "oauth_account"
	KindScrapedPage      DataKind = "scraped_page"
)

// ProfileData is the platform specific payload kept next to a link.
// Exactly one variant pointer is set, matching Kind.
type ProfileData struct {
	Kind      DataKind       `json:"kind"`
	Channel   *ChannelData   `json:"channel,omitempty"`
	Instagram *InstagramData `json:"instagram,omitempty"`
	Account   *AccountData   `json:"account,omitempty"`
	Page      *PageData      `json:"page,omitempty"`
}

// ChannelData describes a YouTube channel.
type ChannelData struct {
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Subscribers int64  `json:"subscribers"`
	Videos      int64  `json:"videos"`
	Views       int64  `json:"views"`
}

type InstagramData struct {
	InstagramID string `json:"instagram_id"`
	AccountType string `json:"account_type,omitempty"`
	MediaCount  int64  `json:"media_count"`
}

// AccountData keeps the provider identity of an OAuth connected account.
type AccountData struct {
	Provider       Provider `json:"provider"`
	ProviderUserID string   `json:"provider_user_id,omitempty"`
	DisplayName    string   `json:"display_name,omitempty"`
}

// PageData holds what was learned from a URL and its public page.
type PageData struct {
	ProfileName    string `json:"profile_name,omitempty"`
	Avatar         string `json:"avatar,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Note           string `json:"note,omitempty"`
	IdentifierKind string `json:"identifier_kind,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ChannelID      string `json:"channel_id,omitempty"`
}

// Encode serializes the payload for a JSON column. A nil payload encodes to nil.
func (d *ProfileData) Encode() ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode profile data: %w", err)
	}
	return raw, nil
}

// DecodeProfileData parses a stored payload. Empty and null columns decode
// to nil; unknown fields are ignored.
func DecodeProfileData(raw []byte) (*ProfileData, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var data ProfileData
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return nil, fmt.Errorf("decode profile data: %w", err)
	}
	return &data, nil
}

// ChannelStats returns the YouTube variant when present.
func (d *ProfileData) ChannelStats() (ChannelData, bool) {
	if d == nil || d.Kind != KindYouTubeChannel || d.Channel == nil {
		return ChannelData{}, false
	}
	return *d.Channel, true
}

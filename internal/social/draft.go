package social

// Draft is a partially filled social link built from a URL before it is
// reconciled. Enrichment only ever adds to it.
type Draft struct {
	Platform       Platform `json:"platform"`
	URL            string   `json:"url"`
	Username       string   `json:"username,omitempty"`
	ProfileName    string   `json:"profile_name,omitempty"`
	Avatar         string   `json:"avatar,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	IdentifierKind string   `json:"identifier_kind,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	ChannelID      string   `json:"channel_id,omitempty"`
	Note           string   `json:"note,omitempty"`
}

// DraftFromClassification seeds a draft with what the classifier found.
func DraftFromClassification(c Classification) Draft {
	return Draft{
		Platform:       c.Platform,
		URL:            c.URL,
		Username:       c.Identifier,
		ProfileName:    c.ProfileName,
		IdentifierKind: c.Hints.Kind,
		Phone:          c.Hints.Phone,
		ChannelID:      c.Hints.ChannelID,
	}
}

func (d Draft) hasScrapedData() bool {
	return d.ProfileName != "" || d.Avatar != "" || d.Bio != "" || d.Note != "" ||
		d.IdentifierKind != "" || d.Phone != "" || d.ChannelID != ""
}

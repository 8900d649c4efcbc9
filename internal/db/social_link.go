package db

import (
	"time"

	"gorm.io/datatypes"
)

// SocialLink 保存用户在某个平台上的唯一账号链接。
// (user_id, platform) 唯一，对账时原地更新该行
type SocialLink struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;uniqueIndex:idx_social_links_user_platform" json:"user_id"`
	Platform     string         `gorm:"size:32;not null;uniqueIndex:idx_social_links_user_platform" json:"platform"`
	Username     string         `gorm:"size:255;not null" json:"username"`
	URL          string         `gorm:"size:2048;not null" json:"url"`
	IsVisible    bool           `gorm:"not null" json:"is_visible"`
	DisplayOrder int            `gorm:"not null;default:0" json:"display_order"`
	ProfileData  datatypes.JSON `json:"profile_data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (SocialLink) TableName() string {
	return "social_links"
}

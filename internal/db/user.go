package db

import "time"

// User 定义了名片所有者。删除用户会级联删除其社交链接。
type User struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Username    string       `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Password    string       `gorm:"not null" json:"-"`
	FullName    string       `gorm:"size:120" json:"full_name"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	SocialLinks []SocialLink `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "users"
}

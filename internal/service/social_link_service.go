package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eidcard/internal/db"
	"github.com/eidcard/internal/social"
)

var (
	// ErrSocialLinkNotFound 在指定的社交链接不存在或不属于当前用户时返回
	ErrSocialLinkNotFound = errors.New("social link not found")
	// ErrInvalidInput 在输入数据不完整时返回
	ErrInvalidInput = errors.New("invalid input")
)

// SocialLinkService 负责社交链接的对账写入与查询。
type SocialLinkService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSocialLinkService 构造 SocialLinkService
func NewSocialLinkService(gdb *gorm.DB, logger *zap.Logger) *SocialLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocialLinkService{db: gdb, logger: logger}
}

// Reconcile 将 n 写入用户在该平台唯一的一条链接。
// 已存在的行保留 id、创建时间和 display_order，只替换用户名、URL、可见性与 profile_data。
// 返回的布尔值表示本次是否新建了行。
func (s *SocialLinkService) Reconcile(ctx context.Context, userID uint, platform social.Platform, n social.Normalized, visible bool) (*db.SocialLink, bool, error) {
	if userID == 0 {
		return nil, false, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if strings.TrimSpace(string(platform)) == "" {
		return nil, false, fmt.Errorf("%w: platform is required", ErrInvalidInput)
	}
	username := strings.TrimSpace(n.Username)
	if username == "" || strings.TrimSpace(n.ProfileURL) == "" {
		return nil, false, fmt.Errorf("%w from %s", social.ErrInsufficientData, platform)
	}

	data, err := n.Data.Encode()
	if err != nil {
		return nil, false, err
	}

	var (
		link    db.SocialLink
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := nextDisplayOrder(tx, userID)
		if err != nil {
			return err
		}

		now := time.Now()
		row := db.SocialLink{
			UserID:       userID,
			Platform:     string(platform),
			Username:     username,
			URL:          strings.TrimSpace(n.ProfileURL),
			IsVisible:    visible,
			DisplayOrder: order,
			ProfileData:  datatypes.JSON(data),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"username":     row.Username,
				"url":          row.URL,
				"is_visible":   row.IsVisible,
				"profile_data": row.ProfileData,
				"updated_at":   now,
			}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert social link: %w", err)
		}

		if err := tx.Where("user_id = ? AND platform = ?", userID, string(platform)).First(&link).Error; err != nil {
			return fmt.Errorf("reload social link: %w", err)
		}
		// 冲突更新不会改动 created_at，只有本次插入的行才带着 now
		created = link.CreatedAt.Equal(now)
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("social link reconciled",
		zap.Uint("user_id", userID),
		zap.String("platform", string(platform)),
		zap.Uint("link_id", link.ID),
		zap.Bool("created", created),
	)
	return &link, created, nil
}

// ListLinks 返回用户的社交链接，按 display_order 升序。
// includeHidden 为 false 时仅返回公开链接。
func (s *SocialLinkService) ListLinks(ctx context.Context, userID uint, includeHidden bool) ([]db.SocialLink, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeHidden {
		query = query.Where("is_visible = ?", true)
	}

	var links []db.SocialLink
	if err := query.Order("display_order ASC, id ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list social links: %w", err)
	}
	return links, nil
}

// GetLink 根据主键获取属于 userID 的链接
func (s *SocialLinkService) GetLink(ctx context.Context, userID, id uint) (*db.SocialLink, error) {
	var link db.SocialLink
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSocialLinkNotFound
		}
		return nil, fmt.Errorf("get social link: %w", err)
	}
	return &link, nil
}

// DeleteLink 删除属于 userID 的链接
func (s *SocialLinkService) DeleteLink(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&db.SocialLink{})
	if result.Error != nil {
		return fmt.Errorf("delete social link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSocialLinkNotFound
	}
	return nil
}

// SetVisibility 切换链接在公开名片上的可见性
func (s *SocialLinkService) SetVisibility(ctx context.Context, userID, id uint, visible bool) (*db.SocialLink, error) {
	result := s.db.WithContext(ctx).Model(&db.SocialLink{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_visible", visible)
	if result.Error != nil {
		return nil, fmt.Errorf("update social link visibility: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrSocialLinkNotFound
	}
	return s.GetLink(ctx, userID, id)
}

// ReorderLinks 按给定顺序重排 display_order
// 传入的 IDs 会被依次赋值 0,1,2...，未包含的条目保持原排序
func (s *SocialLinkService) ReorderLinks(ctx context.Context, userID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, id := range ids {
			result := tx.Model(&db.SocialLink{}).
				Where("id = ? AND user_id = ?", id, userID).
				Update("display_order", index)
			if result.Error != nil {
				return fmt.Errorf("reorder social links: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrSocialLinkNotFound
			}
		}
		return nil
	})
}

func nextDisplayOrder(tx *gorm.DB, userID uint) (int, error) {
	var maxOrder int
	if err := tx.Model(&db.SocialLink{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(display_order), -1)").
		Scan(&maxOrder).Error; err != nil {
		return 0, fmt.Errorf("resolve social link order: %w", err)
	}
	return maxOrder + 1, nil
}

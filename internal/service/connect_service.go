package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eidcard/internal/db"
	"github.com/eidcard/internal/oauth"
	"github.com/eidcard/internal/social"
)

// ConnectService 串联 URL 与 OAuth 两条接入流程，最终交由 SocialLinkService 对账。
type ConnectService struct {
	links    *SocialLinkService
	enricher *social.Enricher
	adapter  *oauth.Adapter
	logger   *zap.Logger
}

func NewConnectService(links *SocialLinkService, enricher *social.Enricher, adapter *oauth.Adapter, logger *zap.Logger) *ConnectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectService{links: links, enricher: enricher, adapter: adapter, logger: logger}
}

// ConnectURLInput 描述通过粘贴链接添加社交账号时的输入。
// Username 覆盖从 URL 中提取的标识
type ConnectURLInput struct {
	Platform string `json:"platform" validate:"required,platform"`
	URL      string `json:"url" validate:"required,max=2048"`
	Username string `json:"username" validate:"max=255"`
	Visible  *bool  `json:"is_visible"`
}

// ConnectResult 是一次连接流程的结果
type ConnectResult struct {
	Link    *db.SocialLink `json:"link"`
	Created bool           `json:"created"`
	Draft   *social.Draft  `json:"draft,omitempty"`
}

// ConnectURL 对粘贴的 URL 依次识别、抓取、规范化并对账写入
func (s *ConnectService) ConnectURL(ctx context.Context, userID uint, input ConnectURLInput) (*ConnectResult, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	platform, _ := social.ParsePlatform(input.Platform)

	draft := s.draft(ctx, platform, input.URL)

	normalized, err := social.NormalizeDraft(draft, input.Username)
	if err != nil {
		return nil, err
	}

	visible := true
	if input.Visible != nil {
		visible = *input.Visible
	}

	link, created, err := s.links.Reconcile(ctx, userID, platform, normalized, visible)
	if err != nil {
		return nil, err
	}
	return &ConnectResult{Link: link, Created: created, Draft: &draft}, nil
}

// PreviewURL 返回 ConnectURL 将会保存的内容，但不落库
func (s *ConnectService) PreviewURL(ctx context.Context, rawPlatform, rawURL string) (social.Draft, error) {
	input := ConnectURLInput{Platform: rawPlatform, URL: rawURL}
	if err := validateStruct(input); err != nil {
		return social.Draft{}, err
	}
	platform, _ := social.ParsePlatform(rawPlatform)
	return s.draft(ctx, platform, rawURL), nil
}

func (s *ConnectService) draft(ctx context.Context, platform social.Platform, rawURL string) social.Draft {
	classification := social.Classify(rawURL, platform)
	if classification.Detected != "" && classification.Detected != platform {
		s.logger.Warn("url host does not match requested platform",
			zap.String("platform", string(platform)),
			zap.String("detected", string(classification.Detected)),
			zap.String("url", classification.URL),
		)
	}

	draft := social.DraftFromClassification(classification)
	if s.enricher == nil || classification.URL == "" {
		return draft
	}
	return s.enricher.Enrich(ctx, classification.URL, draft)
}

// OAuthConfigured 判断平台能否通过 OAuth 连接
func (s *ConnectService) OAuthConfigured(rawPlatform string) bool {
	platform, ok := social.ParsePlatform(rawPlatform)
	return ok && s.adapter != nil && s.adapter.Configured(platform)
}

// BeginOAuth 发起一次 OAuth 连接并返回授权地址
func (s *ConnectService) BeginOAuth(store oauth.StateStore, rawPlatform, redirectURI string) (string, error) {
	platform, ok := social.ParsePlatform(rawPlatform)
	if !ok {
		return "", fmt.Errorf("%w: unsupported platform %q", ErrInvalidInput, strings.TrimSpace(rawPlatform))
	}
	authURL, _, err := s.adapter.Begin(store, platform, redirectURI)
	if err != nil {
		return "", err
	}
	return authURL, nil
}

// CompleteOAuth 完成 BeginOAuth 发起的尝试，并把账号对账为一条可见链接。
// OAuth 得到的数据不再做页面抓取。
func (s *ConnectService) CompleteOAuth(ctx context.Context, store oauth.StateStore, userID uint, rawPlatform, redirectURI string, cb oauth.Callback) (*ConnectResult, *oauth.Attempt, error) {
	platform, ok := social.ParsePlatform(rawPlatform)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unsupported platform %q", ErrInvalidInput, strings.TrimSpace(rawPlatform))
	}

	attempt, payload, err := s.adapter.Complete(ctx, store, platform, redirectURI, cb)
	if err != nil {
		return nil, attempt, err
	}

	normalized, err := social.Normalize(platform, payload)
	if err != nil {
		return nil, attempt, attempt.Fail(err)
	}

	link, created, err := s.links.Reconcile(ctx, userID, platform, normalized, true)
	if err != nil {
		return nil, attempt, attempt.Fail(err)
	}
	if err := attempt.MarkReconciled(); err != nil {
		return nil, attempt, attempt.Fail(err)
	}

	s.logger.Info("oauth account connected",
		zap.String("attempt_id", attempt.ID),
		zap.Uint("user_id", userID),
		zap.String("platform", string(platform)),
		zap.Bool("created", created),
	)
	return &ConnectResult{Link: link, Created: created}, attempt, nil
}

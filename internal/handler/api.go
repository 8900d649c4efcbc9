package handler

import (
	"strings"

	"go.uber.org/zap"

	"github.com/eidcard/internal/config"
	"github.com/eidcard/internal/service"
	"github.com/eidcard/internal/social"
)

// API 汇总 HTTP 处理器共享的依赖
type API struct {
	users   *service.UserService
	links   *service.SocialLinkService
	connect *service.ConnectService
	cfg     config.AppConfig
	logger  *zap.Logger
}

// NewAPI 使用共享的服务构造处理器集合
func NewAPI(cfg config.AppConfig, users *service.UserService, links *service.SocialLinkService, connect *service.ConnectService, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		users:   users,
		links:   links,
		connect: connect,
		cfg:     cfg,
		logger:  logger,
	}
}

// callbackURL 返回某平台在 OAuth 提供方登记的回调地址
func (a *API) callbackURL(platform social.Platform) string {
	return strings.TrimRight(a.cfg.BaseURL, "/") + "/oauth/callback/" + platform.Slug()
}

func (a *API) postConnectRedirect() string {
	if strings.TrimSpace(a.cfg.PostConnectRedirect) == "" {
		return "/"
	}
	return a.cfg.PostConnectRedirect
}

package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eidcard/internal/config"
	"github.com/eidcard/internal/db"
	"github.com/eidcard/internal/handler"
	"github.com/eidcard/internal/logging"
	"github.com/eidcard/internal/oauth"
	"github.com/eidcard/internal/router"
	"github.com/eidcard/internal/service"
	"github.com/eidcard/internal/social"
)

func main() {
	cfg := config.Load()

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "eid-card")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	enricher := social.NewEnricher(cfg.EnrichTimeout, logger.Named("enrich"))
	adapter := oauth.New(cfg, &http.Client{Timeout: cfg.OAuthTimeout}, logger.Named("oauth"))
	for name, provider := range cfg.OAuthProviders {
		if !provider.Configured() {
			logger.Info("oauth provider disabled", zap.String("provider", name))
		}
	}

	users := service.NewUserService(db.DB)
	links := service.NewSocialLinkService(db.DB, logger.Named("links"))
	connect := service.NewConnectService(links, enricher, adapter, logger.Named("connect"))
	api := handler.NewAPI(cfg, users, links, connect, logger)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(cfg, api, logger)
	logger.Info("server starting", zap.String("addr", cfg.ListenAddr), zap.String("base_url", cfg.BaseURL))
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("failed to run server", zap.Error(err))
	}
}

package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eidcard/internal/config"
	"github.com/eidcard/internal/handler"
	"github.com/eidcard/internal/logging"
)

const sessionName = "eid_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig, api *handler.API, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(logging.GinMiddleware(logger), gin.Recovery())

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
	}

	public := r.Group("/api")
	{
		public.GET("/users/:username/links", api.PublicLinks)
		public.GET("/flashes", api.Flashes)
		public.GET("/platforms", api.ListPlatforms)
	}

	// 需要登录的路由
	owner := r.Group("")
	owner.Use(handler.AuthRequired())
	{
		owner.GET("/auth/me", api.Me)

		links := owner.Group("/api/links")
		{
			links.GET("", api.ListLinks)
			links.POST("", api.ConnectLink)
			links.POST("/preview", api.PreviewLink)
			links.PUT("/order", api.ReorderLinks)
			links.PUT("/:id/visibility", api.SetLinkVisibility)
			links.DELETE("/:id", api.DeleteLink)
		}

		oauthRoutes := owner.Group("/oauth")
		{
			oauthRoutes.GET("/connect/:platform", api.ConnectOAuth)
			oauthRoutes.GET("/callback/:platform", api.OAuthCallback)
		}
	}

	return r
}

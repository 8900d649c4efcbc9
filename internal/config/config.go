package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OAuthProvider 描述一个 OAuth 提供方的凭据与端点。
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserinfoURL  string
	// ChannelsURL 仅 google 使用，用于读取 YouTube 频道统计
	ChannelsURL string
	Scopes      []string
	// Platforms 列出该提供方负责连接的平台
	Platforms []string
}

// Configured 判断是否填写了客户端凭据
func (p OAuthProvider) Configured() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr          string
	Port                string
	DatabasePath        string
	SessionSecret       string
	GinMode             string
	BaseURL             string
	LogLevel            string
	LogFormat           string
	EnrichTimeout       time.Duration
	OAuthTimeout        time.Duration
	PostConnectRedirect string
	OAuthProviders      map[string]OAuthProvider
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 工作目录下存在 .env 文件时会先加载它。
func Load() AppConfig {
	_ = godotenv.Load()

	port := envOr("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:          listenAddr,
		Port:                port,
		DatabasePath:        envOr("DATABASE_PATH", "eid.db"),
		SessionSecret:       envOr("SESSION_SECRET", "eid-dev-secret"),
		GinMode:             envOr("GIN_MODE", "release"),
		BaseURL:             strings.TrimRight(envOr("BASE_URL", "http://localhost:"+port), "/"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFormat:           envOr("LOG_FORMAT", "json"),
		EnrichTimeout:       durationOr("ENRICH_TIMEOUT", 4*time.Second),
		OAuthTimeout:        durationOr("OAUTH_TIMEOUT", 15*time.Second),
		PostConnectRedirect: envOr("POST_CONNECT_REDIRECT", "/profile"),
		OAuthProviders:      loadOAuthProviders(),
	}
}

func loadOAuthProviders() map[string]OAuthProvider {
	return map[string]OAuthProvider{
		"google": {
			ClientID:     envOr("GOOGLE_CLIENT_ID", ""),
			ClientSecret: envOr("GOOGLE_CLIENT_SECRET", ""),
			AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:     "https://oauth2.googleapis.com/token",
			UserinfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
			ChannelsURL:  "https://www.googleapis.com/youtube/v3/channels",
			Scopes:       []string{"openid", "email", "profile", "https://www.googleapis.com/auth/youtube.readonly"},
			Platforms:    []string{"YouTube"},
		},
		"facebook": {
			ClientID:     envOr("FACEBOOK_APP_ID", ""),
			ClientSecret: envOr("FACEBOOK_APP_SECRET", ""),
			AuthorizeURL: "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL:     "https://graph.facebook.com/v18.0/oauth/access_token",
			UserinfoURL:  "https://graph.facebook.com/me",
			Scopes:       []string{"public_profile,email"},
			Platforms:    []string{"Facebook"},
		},
		"instagram": {
			ClientID:     envOr("INSTAGRAM_APP_ID", ""),
			ClientSecret: envOr("INSTAGRAM_APP_SECRET", ""),
			AuthorizeURL: "https://api.instagram.com/oauth/authorize",
			TokenURL:     "https://api.instagram.com/oauth/access_token",
			UserinfoURL:  "https://graph.instagram.com/me",
			Scopes:       []string{"user_profile,user_media"},
			Platforms:    []string{"Instagram"},
		},
		"twitter": {
			ClientID:     envOr("TWITTER_CLIENT_ID", ""),
			ClientSecret: envOr("TWITTER_CLIENT_SECRET", ""),
			AuthorizeURL: "https://twitter.com/i/oauth2/authorize",
			TokenURL:     "https://api.twitter.com/2/oauth2/token",
			UserinfoURL:  "https://api.twitter.com/2/users/me",
			Scopes:       []string{"tweet.read", "users.read"},
			Platforms:    []string{"X"},
		},
		"linkedin": {
			ClientID:     envOr("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: envOr("LINKEDIN_CLIENT_SECRET", ""),
			AuthorizeURL: "https://www.linkedin.com/oauth/v2/authorization",
			TokenURL:     "https://www.linkedin.com/oauth/v2/accessToken",
			UserinfoURL:  "https://api.linkedin.com/v2/me",
			Scopes:       []string{"r_liteprofile", "r_emailaddress"},
			Platforms:    []string{"LinkedIn"},
		},
		"tiktok": {
			ClientID:     envOr("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: envOr("TIKTOK_CLIENT_SECRET", ""),
			AuthorizeURL: "https://www.tiktok.com/auth/authorize/",
			TokenURL:     "https://open-api.tiktok.com/oauth/access_token/",
			UserinfoURL:  "https://open-api.tiktok.com/user/info/",
			Scopes:       []string{"user.info.basic"},
			Platforms:    []string{"TikTok"},
		},
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// durationOr 接受 Go 的时长写法，例如 "4s"、"1500ms"
func durationOr(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

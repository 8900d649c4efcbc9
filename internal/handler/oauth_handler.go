package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eidcard/internal/oauth"
	"github.com/eidcard/internal/service"
	"github.com/eidcard/internal/social"
)

// ConnectOAuth 发起 OAuth 授权并跳转到提供方
func (a *API) ConnectOAuth(c *gin.Context) {
	session := sessions.Default(c)
	platform, ok := social.ParsePlatform(c.Param("platform"))
	if !ok {
		a.redirectWithFlash(c, session, fmt.Sprintf("Unsupported platform %q", c.Param("platform")))
		return
	}

	authURL, err := a.connect.BeginOAuth(newSessionStateStore(session), string(platform), a.callbackURL(platform))
	if err != nil {
		a.redirectWithFlash(c, session, oauthFailureMessage(platform, err))
		return
	}

	if err := session.Save(); err != nil {
		a.logger.Error("failed to save oauth state", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// OAuthCallback 处理提供方回调，完成对账后带提示消息跳回
func (a *API) OAuthCallback(c *gin.Context) {
	session := sessions.Default(c)
	platform, ok := social.ParsePlatform(c.Param("platform"))
	if !ok {
		a.redirectWithFlash(c, session, fmt.Sprintf("Unsupported platform %q", c.Param("platform")))
		return
	}

	userID, _ := currentUserID(c)
	cb := oauth.Callback{
		State:            c.Query("state"),
		Code:             c.Query("code"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	}

	result, _, err := a.connect.CompleteOAuth(c.Request.Context(), newSessionStateStore(session), userID, string(platform), a.callbackURL(platform), cb)
	if err != nil {
		a.redirectWithFlash(c, session, oauthFailureMessage(platform, err))
		return
	}

	verb := "updated"
	if result.Created {
		verb = "connected"
	}
	a.redirectWithFlash(c, session, fmt.Sprintf("%s account %s as %s", platform, verb, result.Link.Username))
}

func (a *API) redirectWithFlash(c *gin.Context, session sessions.Session, message string) {
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		a.logger.Warn("failed to save flash message", zap.Error(err))
	}
	c.Redirect(http.StatusFound, a.postConnectRedirect())
}

// oauthFailureMessage 把 OAuth 流程中的错误翻译成面向用户的提示
func oauthFailureMessage(platform social.Platform, err error) string {
	var providerErr *oauth.ProviderError
	switch {
	case errors.As(err, &providerErr):
		detail := providerErr.Description
		if detail == "" {
			detail = providerErr.Code
		}
		return fmt.Sprintf("%s authorization failed: %s", platform, detail)
	case errors.Is(err, oauth.ErrNotConfigured), errors.Is(err, oauth.ErrUnsupportedPlatform):
		return fmt.Sprintf("%s OAuth is not configured", platform)
	case errors.Is(err, oauth.ErrStateMismatch):
		return fmt.Sprintf("Invalid %s connection state, please try again", platform)
	case errors.Is(err, oauth.ErrMissingCode):
		return fmt.Sprintf("%s did not return an authorization code", platform)
	case errors.Is(err, oauth.ErrTokenExchange), errors.Is(err, oauth.ErrNoAccessToken):
		return fmt.Sprintf("Could not obtain a %s access token", platform)
	case errors.Is(err, oauth.ErrUserinfo):
		return fmt.Sprintf("Could not fetch %s profile", platform)
	case errors.Is(err, social.ErrInsufficientData):
		return fmt.Sprintf("Could not get enough data from %s to create the link", platform)
	case errors.Is(err, service.ErrInvalidInput):
		return fmt.Sprintf("Could not connect %s account: %v", platform, err)
	default:
		return fmt.Sprintf("Could not connect %s account", platform)
	}
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eidcard/internal/service"
	"github.com/eidcard/internal/social"
)

type previewRequest struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type visibilityRequest struct {
	IsVisible *bool `json:"is_visible" binding:"required"`
}

type platformView struct {
	Name  social.Platform `json:"name"`
	Slug  string          `json:"slug"`
	OAuth bool            `json:"oauth"`
}

type reorderRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// ListLinks 返回当前用户的全部社交链接（含隐藏）
func (a *API) ListLinks(c *gin.Context) {
	userID, _ := currentUserID(c)
	links, err := a.links.ListLinks(c.Request.Context(), userID, true)
	if err != nil {
		a.respondServiceError(c, err, "failed to list links")
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// ConnectLink 通过粘贴的 URL 添加或更新社交链接
func (a *API) ConnectLink(c *gin.Context) {
	var req service.ConnectURLInput
	if !bindJSON(c, &req, "invalid link payload") {
		return
	}

	userID, _ := currentUserID(c)
	result, err := a.connect.ConnectURL(c.Request.Context(), userID, req)
	if err != nil {
		a.respondServiceError(c, err, "failed to save link")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// PreviewLink 对 URL 做识别和抓取预览，但不保存
func (a *API) PreviewLink(c *gin.Context) {
	var req previewRequest
	if !bindJSON(c, &req, "invalid preview payload") {
		return
	}

	draft, err := a.connect.PreviewURL(c.Request.Context(), req.Platform, req.URL)
	if err != nil {
		a.respondServiceError(c, err, "failed to preview link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

func (a *API) SetLinkVisibility(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid link id")
		return
	}

	var req visibilityRequest
	if !bindJSON(c, &req, "is_visible is required") {
		return
	}

	userID, _ := currentUserID(c)
	link, err := a.links.SetVisibility(c.Request.Context(), userID, id, *req.IsVisible)
	if err != nil {
		a.respondServiceError(c, err, "failed to update link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

func (a *API) ReorderLinks(c *gin.Context) {
	var req reorderRequest
	if !bindJSON(c, &req, "ids are required") {
		return
	}

	userID, _ := currentUserID(c)
	if err := a.links.ReorderLinks(c.Request.Context(), userID, req.IDs); err != nil {
		a.respondServiceError(c, err, "failed to reorder links")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order updated"})
}

// DeleteLink 删除社交链接
func (a *API) DeleteLink(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid link id")
		return
	}

	userID, _ := currentUserID(c)
	if err := a.links.DeleteLink(c.Request.Context(), userID, id); err != nil {
		a.respondServiceError(c, err, "failed to delete link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "link deleted"})
}

// PublicLinks 返回名片公开展示的链接
func (a *API) PublicLinks(c *gin.Context) {
	user, err := a.users.FindByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		a.respondServiceError(c, err, "failed to load card")
		return
	}

	links, err := a.links.ListLinks(c.Request.Context(), user.ID, false)
	if err != nil {
		a.respondServiceError(c, err, "failed to list links")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":  user.Username,
		"full_name": user.FullName,
		"links":     links,
	})
}

// Flashes 读取并清空 OAuth 重定向留下的提示消息
func (a *API) Flashes(c *gin.Context) {
	session := sessions.Default(c)
	raw := session.Flashes()
	messages := make([]string, 0, len(raw))
	for _, item := range raw {
		messages = append(messages, fmt.Sprint(item))
	}
	if len(raw) > 0 {
		if err := session.Save(); err != nil {
			a.logger.Warn("failed to save session", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"flashes": messages})
}

// ListPlatforms 列出支持的平台，并标明哪些可以走 OAuth 连接
func (a *API) ListPlatforms(c *gin.Context) {
	platforms := social.Platforms()
	views := make([]platformView, 0, len(platforms))
	for _, platform := range platforms {
		views = append(views, platformView{
			Name:  platform,
			Slug:  platform.Slug(),
			OAuth: a.connect.OAuthConfigured(string(platform)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"platforms": views})
}

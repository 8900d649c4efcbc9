package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eidcard/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册新账号并直接登录
func (a *API) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}

	user, err := a.users.Register(c.Request.Context(), req)
	if err != nil {
		a.respondServiceError(c, err, "failed to register user")
		return
	}

	if !a.startSession(c, user.ID, user.Username) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login 处理用户登录请求
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "username and password are required") {
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.respondServiceError(c, err, "failed to log in")
		return
	}

	if !a.startSession(c, user.ID, user.Username) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.logger.Warn("failed to clear session", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	userID, _ := currentUserID(c)
	user, err := a.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		a.respondServiceError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (a *API) startSession(c *gin.Context, userID uint, username string) bool {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, userID)
	session.Set(sessionUsernameKey, username)
	if err := session.Save(); err != nil {
		a.logger.Error("failed to save session", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return false
	}
	return true
}

// AuthRequired 是一个简单的认证中间件
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

package handler

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/eidcard/internal/oauth"
	"github.com/eidcard/internal/social"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
)

// sessionStateStore 把 OAuth 防伪 state 保存在 cookie 会话中。
// 调用方在请求处理完后负责 session.Save。
type sessionStateStore struct {
	session sessions.Session
}

func newSessionStateStore(session sessions.Session) sessionStateStore {
	return sessionStateStore{session: session}
}

func stateKey(platform social.Platform) string    { return "oauth_state_" + platform.Slug() }
func attemptKey(platform social.Platform) string  { return "oauth_attempt_" + platform.Slug() }
func verifierKey(platform social.Platform) string { return "oauth_verifier_" + platform.Slug() }

func (s sessionStateStore) SaveState(platform social.Platform, pending oauth.Pending) error {
	s.session.Set(stateKey(platform), pending.State)
	s.session.Set(attemptKey(platform), pending.AttemptID)
	if pending.Verifier != "" {
		s.session.Set(verifierKey(platform), pending.Verifier)
	} else {
		s.session.Delete(verifierKey(platform))
	}
	return nil
}

func (s sessionStateStore) LoadState(platform social.Platform) (oauth.Pending, bool) {
	state, _ := s.session.Get(stateKey(platform)).(string)
	if state == "" {
		return oauth.Pending{}, false
	}
	attemptID, _ := s.session.Get(attemptKey(platform)).(string)
	verifier, _ := s.session.Get(verifierKey(platform)).(string)
	return oauth.Pending{AttemptID: attemptID, State: state, Verifier: verifier}, true
}

func (s sessionStateStore) ClearState(platform social.Platform) error {
	s.session.Delete(stateKey(platform))
	s.session.Delete(attemptKey(platform))
	s.session.Delete(verifierKey(platform))
	return nil
}

// currentUserID 返回当前会话的用户ID
func currentUserID(c *gin.Context) (uint, bool) {
	id, ok := sessions.Default(c).Get(sessionUserIDKey).(uint)
	return id, ok && id != 0
}

package oauth

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedPlatform = errors.New("platform has no oauth provider")
	ErrNotConfigured       = errors.New("oauth provider not configured")
	ErrStateMismatch       = errors.New("oauth state mismatch")
	ErrMissingCode         = errors.New("authorization code missing")
	ErrTokenExchange       = errors.New("token exchange failed")
	ErrNoAccessToken       = errors.New("no access token received")
	ErrUserinfo            = errors.New("userinfo request failed")
)

// ProviderError 是提供方在回调地址上报告的错误
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider returned error %q", e.Code)
	}
	return fmt.Sprintf("provider returned error %q: %s", e.Code, e.Description)
}

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/eidcard/internal/config"
	"github.com/eidcard/internal/social"
)

type userinfoFetcher func(ctx context.Context, a *Adapter, endpoints config.OAuthProvider, accessToken string) (social.RawPayload, error)

// providerSpec 描述各提供方之间的差异
type providerSpec struct {
	authParams []oauth2.AuthCodeOption
	pkce       bool
	fetch      userinfoFetcher
}

var providerSpecs = map[social.Provider]providerSpec{
	social.ProviderGoogle: {
		authParams: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")},
		fetch:      fetchGoogle,
	},
	social.ProviderFacebook: {
		authParams: []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("display", "popup")},
		fetch:      fetchFacebook,
	},
	social.ProviderInstagram: {fetch: fetchInstagram},
	social.ProviderTwitter:   {pkce: true, fetch: fetchUserinfo},
	social.ProviderLinkedIn:  {fetch: fetchUserinfo},
	social.ProviderTikTok:    {fetch: fetchUserinfo},
}

func fetchUserinfo(ctx context.Context, a *Adapter, endpoints config.OAuthProvider, accessToken string) (social.RawPayload, error) {
	body, err := a.getJSON(ctx, endpoints.UserinfoURL, nil, accessToken)
	if err != nil {
		return social.RawPayload{}, err
	}
	return social.RawPayload{UserInfo: body}, nil
}

// fetchFacebook 额外请求 username 字段，经 Facebook 登录连接 Instagram 时需要它
func fetchFacebook(ctx context.Context, a *Adapter, endpoints config.OAuthProvider, accessToken string) (social.RawPayload, error) {
	query := url.Values{"fields": {"id,name,username"}}
	body, err := a.getJSON(ctx, endpoints.UserinfoURL, query, accessToken)
	if err != nil {
		return social.RawPayload{}, err
	}
	return social.RawPayload{UserInfo: body}, nil
}

func fetchInstagram(ctx context.Context, a *Adapter, endpoints config.OAuthProvider, accessToken string) (social.RawPayload, error) {
	query := url.Values{"fields": {"id,username,account_type,media_count"}}
	body, err := a.getJSON(ctx, endpoints.UserinfoURL, query, accessToken)
	if err != nil {
		return social.RawPayload{}, err
	}
	return social.RawPayload{UserInfo: body}, nil
}

// fetchGoogle 先读取账号再读取 YouTube 频道，频道查询失败时 Channels 留空
func fetchGoogle(ctx context.Context, a *Adapter, endpoints config.OAuthProvider, accessToken string) (social.RawPayload, error) {
	body, err := a.getJSON(ctx, endpoints.UserinfoURL, nil, accessToken)
	if err != nil {
		return social.RawPayload{}, err
	}
	payload := social.RawPayload{UserInfo: body}

	if endpoints.ChannelsURL == "" {
		return payload, nil
	}
	query := url.Values{"part": {"snippet,statistics,brandingSettings"}, "mine": {"true"}}
	channels, err := a.getJSON(ctx, endpoints.ChannelsURL, query, accessToken)
	if err != nil {
		a.logger.Warn("youtube channel lookup failed", zap.Error(err))
		return payload, nil
	}
	payload.Channels = channels
	return payload, nil
}

func (a *Adapter) getJSON(ctx context.Context, endpoint string, query url.Values, accessToken string) (json.RawMessage, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.URL.Host, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned HTTP %d: %s", req.URL.Host, resp.StatusCode, snippet(body))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s returned invalid JSON", req.URL.Host)
	}
	return json.RawMessage(body), nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// Package oauth 针对各身份提供方执行授权码流程，并返回原始账号数据。
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/eidcard/internal/config"
	"github.com/eidcard/internal/social"
)

// Callback 携带提供方回跳时的查询参数
type Callback struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// Adapter 对接配置中的各个 OAuth 提供方。
type Adapter struct {
	providers map[social.Provider]config.OAuthProvider
	platforms map[social.Platform]social.Provider
	client    *http.Client
	timeout   time.Duration
	logger    *zap.Logger
}

// New 根据配置中的提供方表构造 Adapter。
// 平台到提供方的映射来自每个提供方的 Platforms 列表。
func New(cfg config.AppConfig, client *http.Client, logger *zap.Logger) *Adapter {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.OAuthTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	providers := make(map[social.Provider]config.OAuthProvider, len(cfg.OAuthProviders))
	for name, provider := range cfg.OAuthProviders {
		providers[social.Provider(name)] = provider
	}

	return &Adapter{
		providers: providers,
		platforms: platformProviders(providers),
		client:    client,
		timeout:   timeout,
		logger:    logger,
	}
}

// Configured 判断平台对应的提供方是否已配置客户端凭据
func (a *Adapter) Configured(platform social.Platform) bool {
	_, _, err := a.resolve(platform)
	return err == nil
}

func (a *Adapter) resolve(platform social.Platform) (social.Provider, config.OAuthProvider, error) {
	provider, ok := a.platforms[platform]
	if !ok {
		return "", config.OAuthProvider{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	endpoints, ok := a.providers[provider]
	if !ok || !endpoints.Configured() {
		return provider, config.OAuthProvider{}, fmt.Errorf("%w: %s", ErrNotConfigured, platform)
	}
	return provider, endpoints, nil
}

// platformProviders 根据各提供方的 Platforms 列表建立平台到提供方的映射。
// 多个提供方声明同一平台时，优先已配置凭据的，其次与平台同名的，最后按名称字典序。
func platformProviders(providers map[social.Provider]config.OAuthProvider) map[social.Platform]social.Provider {
	names := make([]social.Provider, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	rank := func(platform social.Platform, name social.Provider) int {
		score := 0
		if providers[name].Configured() {
			score += 2
		}
		if string(name) == platform.Slug() {
			score++
		}
		return score
	}

	mapping := make(map[social.Platform]social.Provider)
	for _, name := range names {
		for _, raw := range providers[name].Platforms {
			platform, ok := social.ParsePlatform(raw)
			if !ok {
				continue
			}
			current, taken := mapping[platform]
			if !taken || rank(platform, name) > rank(platform, current) {
				mapping[platform] = name
			}
		}
	}
	return mapping
}

func (a *Adapter) oauthConfig(endpoints config.OAuthProvider, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     endpoints.ClientID,
		ClientSecret: endpoints.ClientSecret,
		Scopes:       endpoints.Scopes,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.AuthorizeURL,
			TokenURL:  endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Begin 为平台生成新的防伪 state 并保存，返回提供方的授权地址。
func (a *Adapter) Begin(store StateStore, platform social.Platform, redirectURI string) (string, *Attempt, error) {
	provider, endpoints, err := a.resolve(platform)
	if err != nil {
		return "", nil, err
	}

	state, err := randomToken(32)
	if err != nil {
		return "", nil, fmt.Errorf("generate oauth state: %w", err)
	}

	attempt := newAttempt("", platform, provider)
	pending := Pending{AttemptID: attempt.ID, State: state}

	spec := providerSpecs[provider]
	opts := append([]oauth2.AuthCodeOption{}, spec.authParams...)
	if spec.pkce {
		pending.Verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(pending.Verifier))
	}

	if err := store.SaveState(platform, pending); err != nil {
		return "", nil, attempt.Fail(fmt.Errorf("save oauth state: %w", err))
	}

	a.logger.Info("oauth connect initiated",
		zap.String("attempt_id", attempt.ID),
		zap.String("platform", string(platform)),
		zap.String("provider", string(provider)),
	)

	return a.oauthConfig(endpoints, redirectURI).AuthCodeURL(state, opts...), attempt, nil
}

// Complete 校验回调、用授权码换取令牌并拉取账号数据。
// 无论成功与否，已保存的 state 都会被清除。
func (a *Adapter) Complete(ctx context.Context, store StateStore, platform social.Platform, redirectURI string, cb Callback) (*Attempt, social.RawPayload, error) {
	pending, found := store.LoadState(platform)
	defer func() {
		if err := store.ClearState(platform); err != nil {
			a.logger.Warn("clear oauth state failed", zap.String("platform", string(platform)), zap.Error(err))
		}
	}()

	provider, endpoints, err := a.resolve(platform)
	if err != nil {
		return nil, social.RawPayload{}, err
	}

	attempt := newAttempt(pending.AttemptID, platform, provider)
	if err := attempt.advance(StageCallbackReceived); err != nil {
		return attempt, social.RawPayload{}, attempt.Fail(err)
	}

	if !found || cb.State == "" || subtle.ConstantTimeCompare([]byte(cb.State), []byte(pending.State)) != 1 {
		a.logFailure(attempt, ErrStateMismatch)
		return attempt, social.RawPayload{}, attempt.Fail(ErrStateMismatch)
	}
	if cb.Error != "" {
		err := &ProviderError{Code: cb.Error, Description: cb.ErrorDescription}
		a.logFailure(attempt, err)
		return attempt, social.RawPayload{}, attempt.Fail(err)
	}
	if strings.TrimSpace(cb.Code) == "" {
		a.logFailure(attempt, ErrMissingCode)
		return attempt, social.RawPayload{}, attempt.Fail(ErrMissingCode)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	token, err := a.exchange(ctx, endpoints, redirectURI, cb.Code, pending.Verifier)
	if err != nil {
		a.logFailure(attempt, err)
		return attempt, social.RawPayload{}, attempt.Fail(err)
	}
	if err := attempt.advance(StageTokenExchanged); err != nil {
		return attempt, social.RawPayload{}, attempt.Fail(err)
	}

	payload, err := providerSpecs[provider].fetch(ctx, a, endpoints, token.AccessToken)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUserinfo, err)
		a.logFailure(attempt, err)
		return attempt, social.RawPayload{}, attempt.Fail(err)
	}
	payload.Provider = provider
	if err := attempt.advance(StageUserinfoFetched); err != nil {
		return attempt, social.RawPayload{}, attempt.Fail(err)
	}

	a.logger.Info("oauth userinfo fetched",
		zap.String("attempt_id", attempt.ID),
		zap.String("platform", string(platform)),
	)
	return attempt, payload, nil
}

func (a *Adapter) exchange(ctx context.Context, endpoints config.OAuthProvider, redirectURI, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := a.oauthConfig(endpoints, redirectURI).Exchange(ctx, code, opts...)
	if err != nil {
		if strings.Contains(err.Error(), "missing access_token") {
			return nil, ErrNoAccessToken
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	return token, nil
}

func (a *Adapter) logFailure(attempt *Attempt, err error) {
	level := a.logger.Warn
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		level = a.logger.Info
	}
	level("oauth connect failed",
		zap.String("attempt_id", attempt.ID),
		zap.String("platform", string(attempt.Platform)),
		zap.String("stage", string(attempt.Stage)),
		zap.Error(err),
	)
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eidcard/internal/config"
	"github.com/eidcard/internal/db"
	"github.com/eidcard/internal/oauth"
	"github.com/eidcard/internal/service"
	"github.com/eidcard/internal/social"
)

// rewriteTransport sends every request to target, keeping the path.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = rt.target.Scheme
	clone.URL.Host = rt.target.Host
	clone.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
}

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:eid-handler-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return gdb
}

// newProviderServer serves a tiktok style token and userinfo endpoint.
func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer"}`)
		case "/userinfo":
			fmt.Fprint(w, `{"data":{"user":{"open_id":"tt1","unique_id":"dancer","display_name":"The Dancer"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><meta property="og:title" content="Profile %s"></head></html>`, r.URL.Path)
	}))
	t.Cleanup(pages.Close)
	target, err := url.Parse(pages.URL)
	if err != nil {
		t.Fatalf("parse page server url: %v", err)
	}

	provider := newProviderServer(t)
	cfg := config.AppConfig{
		BaseURL:             "http://eid.test",
		PostConnectRedirect: "/dashboard",
		OAuthProviders: map[string]config.OAuthProvider{
			"tiktok": {
				ClientID:     "key",
				ClientSecret: "secret",
				AuthorizeURL: "https://auth.example.com/tiktok",
				TokenURL:     provider.URL + "/token",
				UserinfoURL:  provider.URL + "/userinfo",
				Platforms:    []string{"TikTok"},
			},
		},
	}

	gdb := setupHandlerTestDB(t)
	enricher := social.NewEnricher(time.Second, nil)
	enricher.SetHTTPClient(&http.Client{Transport: rewriteTransport{target: target}})
	adapter := oauth.New(cfg, provider.Client(), nil)

	users := service.NewUserService(gdb)
	links := service.NewSocialLinkService(gdb, nil)
	connect := service.NewConnectService(links, enricher, adapter, nil)
	api := NewAPI(cfg, users, links, connect, nil)

	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	store.Options(sessions.Options{Path: "/", HttpOnly: true})
	r.Use(sessions.Sessions("eid_session", store))
	r.POST("/auth/register", api.Register)
	r.POST("/auth/login", api.Login)
	r.POST("/auth/logout", api.Logout)
	r.GET("/api/users/:username/links", api.PublicLinks)
	r.GET("/api/flashes", api.Flashes)
	r.GET("/api/platforms", api.ListPlatforms)
	authed := r.Group("")
	authed.Use(AuthRequired())
	authed.GET("/auth/me", api.Me)
	authed.GET("/api/links", api.ListLinks)
	authed.POST("/api/links", api.ConnectLink)
	authed.POST("/api/links/preview", api.PreviewLink)
	authed.PUT("/api/links/order", api.ReorderLinks)
	authed.PUT("/api/links/:id/visibility", api.SetLinkVisibility)
	authed.DELETE("/api/links/:id", api.DeleteLink)
	authed.GET("/oauth/connect/:platform", api.ConnectOAuth)
	authed.GET("/oauth/callback/:platform", api.OAuthCallback)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{server: server, client: client}
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) (int, map[string]json.RawMessage, *http.Response) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	decoded := map[string]json.RawMessage{}
	if data, _ := io.ReadAll(resp.Body); len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode, decoded, resp
}

func (e *testEnv) register(t *testing.T, username string) {
	t.Helper()
	status, _, _ := e.do(t, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected register to return 201, got %d", status)
	}
}

func decodeLinks(t *testing.T, raw json.RawMessage) []db.SocialLink {
	t.Helper()
	var links []db.SocialLink
	if err := json.Unmarshal(raw, &links); err != nil {
		t.Fatalf("decode links: %v", err)
	}
	return links
}

func TestLinkEndpointsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/links", "/oauth/connect/tiktok"} {
		status, body, _ := env.do(t, http.MethodGet, path, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, status)
		}
		if _, ok := body["error"]; !ok {
			t.Fatalf("%s: expected error body, got %v", path, body)
		}
	}
}

func TestConnectLinkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane")

	status, body, _ := env.do(t, http.MethodPost, "/api/links", map[string]any{"platform": "instagram", "url": "instagram.com/janedoe"})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	var link db.SocialLink
	if err := json.Unmarshal(body["link"], &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	if link.Username != "@janedoe" || link.Platform != "Instagram" {
		t.Fatalf("unexpected link %+v", link)
	}

	status, _, _ = env.do(t, http.MethodPost, "/api/links", map[string]any{"platform": "instagram", "url": "instagram.com/jane.d"})
	if status != http.StatusOK {
		t.Fatalf("expected reconnect to update with 200, got %d", status)
	}

	status, body, _ = env.do(t, http.MethodGet, "/api/users/jane/links", nil)
	if status != http.StatusOK {
		t.Fatalf("expected public card, got %d", status)
	}
	if public := decodeLinks(t, body["links"]); len(public) != 1 || public[0].Username != "@jane.d" {
		t.Fatalf("unexpected public links %+v", public)
	}

	status, _, _ = env.do(t, http.MethodPut, fmt.Sprintf("/api/links/%d/visibility", link.ID), map[string]any{"is_visible": false})
	if status != http.StatusOK {
		t.Fatalf("expected visibility update, got %d", status)
	}
	_, body, _ = env.do(t, http.MethodGet, "/api/users/jane/links", nil)
	if public := decodeLinks(t, body["links"]); len(public) != 0 {
		t.Fatalf("expected hidden link to disappear from card, got %+v", public)
	}
	_, body, _ = env.do(t, http.MethodGet, "/api/links", nil)
	if owned := decodeLinks(t, body["links"]); len(owned) != 1 || owned[0].IsVisible {
		t.Fatalf("expected owner to still see hidden link, got %+v", owned)
	}

	status, _, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/links/%d", link.ID), nil)
	if status != http.StatusOK {
		t.Fatalf("expected delete, got %d", status)
	}
	status, _, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/links/%d", link.ID), nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected second delete to 404, got %d", status)
	}

	env.do(t, http.MethodPost, "/auth/logout", nil)
	if status, _, _ := env.do(t, http.MethodGet, "/api/links", nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestConnectLinkErrors(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane")

	tests := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{name: "unknown platform", payload: map[string]any{"platform": "myspace", "url": "https://myspace.com/jane"}, status: http.StatusBadRequest},
		{name: "missing url", payload: map[string]any{"platform": "x"}, status: http.StatusBadRequest},
		{name: "no identifier", payload: map[string]any{"platform": "x", "url": "https://x.com/"}, status: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := env.do(t, http.MethodPost, "/api/links", tt.payload)
			if status != tt.status {
				t.Fatalf("expected %d, got %d (%v)", tt.status, status, body)
			}
		})
	}
}

func TestPreviewLinkDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane")

	status, body, _ := env.do(t, http.MethodPost, "/api/links/preview", map[string]any{"platform": "tiktok", "url": "tiktok.com/@dancer"})
	if status != http.StatusOK {
		t.Fatalf("expected preview, got %d (%v)", status, body)
	}
	var draft social.Draft
	if err := json.Unmarshal(body["draft"], &draft); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	if draft.Username != "@dancer" || draft.ProfileName != "Profile /@dancer" {
		t.Fatalf("unexpected draft %+v", draft)
	}

	_, body, _ = env.do(t, http.MethodGet, "/api/links", nil)
	if owned := decodeLinks(t, body["links"]); len(owned) != 0 {
		t.Fatalf("preview must not persist, got %+v", owned)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane")
	env.do(t, http.MethodPost, "/auth/logout", nil)

	status, _, _ := env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "jane", "password": "wrong-password"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	status, _, _ = env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "jane", "password": "correct-horse"})
	if status != http.StatusOK {
		t.Fatalf("expected login, got %d", status)
	}
	status, _, _ = env.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "jane", "password": "another-secret"})
	if status != http.StatusConflict {
		t.Fatalf("expected duplicate registration to 409, got %d", status)
	}
}

func TestMeFollowsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane")

	status, body, _ := env.do(t, http.MethodGet, "/auth/me", nil)
	if status != http.StatusOK {
		t.Fatalf("expected session cookie to authenticate, got %d", status)
	}
	var user db.User
	if err := json.Unmarshal(body["user"], &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Username != "jane" || user.ID == 0 {
		t.Fatalf("unexpected user %+v", user)
	}

	env.do(t, http.MethodPost, "/auth/logout", nil)
	status, _, _ = env.do(t, http.MethodGet, "/auth/me", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestListPlatformsMarksOAuthProviders(t *testing.T) {
	env := newTestEnv(t)

	status, body, _ := env.do(t, http.MethodGet, "/api/platforms", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var platforms []platformView
	if err := json.Unmarshal(body["platforms"], &platforms); err != nil {
		t.Fatalf("decode platforms: %v", err)
	}
	if len(platforms) != len(social.Platforms()) {
		t.Fatalf("expected %d platforms, got %d", len(social.Platforms()), len(platforms))
	}
	for _, p := range platforms {
		if want := p.Name == social.TikTok; p.OAuth != want {
			t.Fatalf("%s: expected oauth=%v, got %v", p.Name, want, p.OAuth)
		}
		if p.Slug != p.Name.Slug() {
			t.Fatalf("%s: unexpected slug %q", p.Name, p.Slug)
		}
	}
}

func (e *testEnv) flashes(t *testing.T) []string {
	t.Helper()
	_, body, _ := e.do(t, http.MethodGet, "/api/flashes", nil)
	var messages []string
	if err := json.Unmarshal(body["flashes"], &messages); err != nil {
		t.Fatalf("decode flashes: %v", err)
	}
	return messages
}

func TestOAuthConnectFlow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane")

	status, _, resp := env.do(t, http.MethodGet, "/oauth/connect/tiktok", nil)
	if status != http.StatusFound {
		t.Fatalf("expected redirect to provider, got %d", status)
	}
	authURL, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if authURL.Host != "auth.example.com" {
		t.Fatalf("unexpected authorize url %s", authURL)
	}
	if got := authURL.Query().Get("redirect_uri"); got != "http://eid.test/oauth/callback/tiktok" {
		t.Fatalf("unexpected redirect_uri %q", got)
	}
	state := authURL.Query().Get("state")

	callback := "/oauth/callback/tiktok?" + url.Values{"state": {state}, "code": {"abc"}}.Encode()
	status, _, resp = env.do(t, http.MethodGet, callback, nil)
	if status != http.StatusFound || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", status, resp.Header.Get("Location"))
	}
	if got := env.flashes(t); len(got) != 1 || got[0] != "TikTok account connected as @dancer" {
		t.Fatalf("unexpected flashes %v", got)
	}
	if got := env.flashes(t); len(got) != 0 {
		t.Fatalf("flashes must be consumed, got %v", got)
	}

	// Replaying the callback fails because the state was cleared.
	env.do(t, http.MethodGet, callback, nil)
	if got := env.flashes(t); len(got) != 1 || !strings.Contains(got[0], "Invalid TikTok connection state") {
		t.Fatalf("unexpected flashes after replay %v", got)
	}

	_, body, _ := env.do(t, http.MethodGet, "/api/links", nil)
	if owned := decodeLinks(t, body["links"]); len(owned) != 1 || owned[0].URL != "https://tiktok.com/@dancer" || !owned[0].IsVisible {
		t.Fatalf("unexpected links %+v", owned)
	}
}

func TestOAuthConnectFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "jane")

	status, _, resp := env.do(t, http.MethodGet, "/oauth/connect/youtube", nil)
	if status != http.StatusFound || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("expected unconfigured provider to redirect back, got %d %q", status, resp.Header.Get("Location"))
	}
	if got := env.flashes(t); len(got) != 1 || got[0] != "YouTube OAuth is not configured" {
		t.Fatalf("unexpected flashes %v", got)
	}

	_, _, resp = env.do(t, http.MethodGet, "/oauth/connect/tiktok", nil)
	authURL, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	callback := "/oauth/callback/tiktok?" + url.Values{
		"state":             {authURL.Query().Get("state")},
		"error":             {"access_denied"},
		"error_description": {"User cancelled"},
	}.Encode()
	env.do(t, http.MethodGet, callback, nil)
	if got := env.flashes(t); len(got) != 1 || got[0] != "TikTok authorization failed: User cancelled" {
		t.Fatalf("unexpected flashes %v", got)
	}

	_, body, _ := env.do(t, http.MethodGet, "/api/links", nil)
	if owned := decodeLinks(t, body["links"]); len(owned) != 0 {
		t.Fatalf("expected no links after failed attempts, got %+v", owned)
	}
}

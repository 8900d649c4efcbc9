package social

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"
	maxPageBytes     = 2 << 20
	maxBioRunes      = 250
	defaultBudget    = 4 * time.Second
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPError reports a non-2xx response from a scraped page.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// Enricher fills drafts with public page metadata.
type Enricher struct {
	http      httpDoer
	timeout   time.Duration
	logger    *zap.Logger
	sanitizer *bluemonday.Policy
}

// NewEnricher returns an enricher bounded by timeout per call.
func NewEnricher(timeout time.Duration, logger *zap.Logger) *Enricher {
	if timeout <= 0 {
		timeout = defaultBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		http:      &http.Client{},
		timeout:   timeout,
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// SetHTTPClient replaces the client used for page fetches.
func (e *Enricher) SetHTTPClient(client httpDoer) {
	if client == nil {
		return
	}
	e.http = client
}

// hostSkipsEnrichment reports whether target points at a host that must never
// be scraped, whatever platform the caller tagged the draft with.
func hostSkipsEnrichment(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	rule, ok := ruleForHost(u.Hostname())
	return ok && rule.skipEnrichment
}

// Enrich fetches the page behind rawURL and copies its title, description and
// image into the draft. It never returns an error: failures are recorded in
// Draft.Note and the draft is returned as received.
func (e *Enricher) Enrich(ctx context.Context, rawURL string, draft Draft) Draft {
	if draft.Platform.SkipsEnrichment() {
		return draft
	}

	target := NormalizeURL(rawURL)
	if target == "" {
		draft.Note = "Could not fetch profile page: empty URL"
		return draft
	}
	if hostSkipsEnrichment(target) {
		return draft
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := e.fetch(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			draft.Note = fmt.Sprintf("Could not fetch profile page: timed out after %s", e.timeout)
		} else {
			draft.Note = "Could not fetch profile page: " + err.Error()
		}
		e.logger.Debug("enrichment failed", zap.String("url", target), zap.Error(err))
		return draft
	}

	meta, err := e.parsePage(body, target)
	if err != nil {
		draft.Note = "Could not read profile page: " + err.Error()
		e.logger.Debug("enrichment parse failed", zap.String("url", target), zap.Error(err))
		return draft
	}

	if meta.title != "" {
		draft.ProfileName = meta.title
	}
	if meta.description != "" {
		draft.Bio = meta.description
	}
	if meta.image != "" {
		draft.Avatar = meta.image
	}
	return draft
}

func (e *Enricher) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	var lastErr error
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			resp, err := e.http.Do(req)
			if err != nil {
				lastErr = err
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = &HTTPError{URL: target, StatusCode: resp.StatusCode}
				return nil, lastErr
			}
			return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(func(err error) bool { return ctx.Err() == nil && isRetryableError(err) }),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Debug("retrying profile fetch", zap.Uint("attempt", n+1), zap.String("url", target), zap.Error(err))
		}),
	)
	if err != nil && lastErr != nil {
		return nil, lastErr
	}
	return body, err
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}

type pageMeta struct {
	title       string
	description string
	image       string
}

func (e *Enricher) parsePage(body []byte, base string) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, err
	}

	meta := pageMeta{
		title:       e.clean(firstNonEmpty(metaContent(doc, "og:title", "twitter:title"), doc.Find("title").First().Text())),
		description: truncateRunes(e.clean(metaContent(doc, "og:description", "twitter:description", "description")), maxBioRunes),
		image:       resolveImage(base, metaContent(doc, "og:image", "og:image:url", "twitter:image")),
	}
	return meta, nil
}

// metaContent returns the content of the first matching meta tag, trying
// both property= and name= for every key in order.
func metaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		for _, attr := range []string{"property", "name"} {
			content := doc.Find(fmt.Sprintf(`meta[%s=%q]`, attr, key)).First().AttrOr("content", "")
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}

func (e *Enricher) clean(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(e.sanitizer.Sanitize(s))), " ")
}

func resolveImage(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		baseURL, err := url.Parse(base)
		if err != nil {
			return ""
		}
		ref = baseURL.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

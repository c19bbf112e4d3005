package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	DefaultAPIURL  = "https://api.github.com/markdown/raw"
	DefaultTimeout = 10 * time.Second

	lowRateLimitRemaining = 20
	maxResponseBytes      = 4 << 20
)

// Renderer converts Markdown to sanitized HTML. The remote API is preferred;
// any failure falls back to the local goldmark renderer.
type Renderer struct {
	client  *http.Client
	apiURL  string
	offline bool
	policy  *bluemonday.Policy
	logger  *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithAPIURL(url string) Option {
	return func(r *Renderer) {
		if url = strings.TrimSpace(url); url != "" {
			r.apiURL = url
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(r *Renderer) {
		if client != nil {
			r.client = client
		}
	}
}

// WithOffline skips the remote API entirely.
func WithOffline(offline bool) Option {
	return func(r *Renderer) { r.offline = offline }
}

func NewRenderer(opts ...Option) *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("pre", "code", "span", "div")
	policy.AllowElements("figure", "figcaption")

	r := &Renderer{
		client: &http.Client{Timeout: DefaultTimeout},
		apiURL: DefaultAPIURL,
		policy: policy,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render always returns HTML: the remote result when it succeeds,
// the local rendering otherwise.
func (r *Renderer) Render(ctx context.Context, markdownText string) string {
	if !r.offline {
		if html, ok := r.renderRemote(ctx, markdownText); ok {
			return r.policy.Sanitize(html)
		}
	}
	return r.policy.Sanitize(RenderLocal(markdownText))
}

func (r *Renderer) renderRemote(ctx context.Context, markdownText string) (string, bool) {
	body := []byte(strings.ToValidUTF8(markdownText, ""))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, bytes.NewReader(body))
	if err != nil {
		r.logger.Error("markdown API request build failed", zap.Error(err))
		return "", false
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("markdown API request failed", zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		r.logger.Error("markdown API response read failed", zap.Error(err))
		return "", false
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("markdown API request failed",
			zap.Int("status", resp.StatusCode),
			zap.Any("headers", resp.Header),
			zap.String("body", string(raw)),
		)
		return "", false
	}

	r.logRateLimit(resp.Header)
	return string(raw), true
}

// RateLimit is the quota reported by the remote API.
type RateLimit struct {
	Limit     int
	Remaining int
}

// ParseRateLimit reads the X-RateLimit-* headers.
func ParseRateLimit(h http.Header) (RateLimit, error) {
	limit, err := strconv.Atoi(strings.TrimSpace(h.Get("X-RateLimit-Limit")))
	if err != nil {
		return RateLimit{}, fmt.Errorf("bad X-RateLimit-Limit: %w", err)
	}
	remaining, err := strconv.Atoi(strings.TrimSpace(h.Get("X-RateLimit-Remaining")))
	if err != nil {
		return RateLimit{}, fmt.Errorf("bad X-RateLimit-Remaining: %w", err)
	}
	return RateLimit{Limit: limit, Remaining: remaining}, nil
}

func (r *Renderer) logRateLimit(h http.Header) {
	rl, err := ParseRateLimit(h)
	if err != nil {
		r.logger.Warn("bad ratelimit headers", zap.Error(err))
		return
	}
	if rl.Remaining < lowRateLimitRemaining {
		r.logger.Warn("markdown API quota is running out", zap.Int("remaining", rl.Remaining))
	}
	r.logger.Info("markdown API quota", zap.Int("limit", rl.Limit), zap.Int("remaining", rl.Remaining))
}

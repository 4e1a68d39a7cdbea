// Package narrative asks an external text-generation service for prose about
// a report. Failures never propagate: every call yields either the generated
// text or a fixed fallback.
package narrative

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"expensetracker/internal/cache"
	applog "expensetracker/internal/log"
)

const (
	DefaultEndpoint   = "https://generativelanguage.googleapis.com/"
	DefaultModel      = "gemini-2.0-flash"
	DefaultTimeout    = 30 * time.Second
	DefaultCacheTTL   = 10 * time.Minute
	PlaceholderAPIKey = "YOUR_GEMINI_API_KEY"

	maxResponseBytes = 1 << 20

	// FallbackText replaces the narrative when the service call fails.
	FallbackText = "AI summary could not be generated at this time."
	// NoSummaryText replaces the narrative when the service answers with no text.
	NoSummaryText = "No AI summary available."
)

// ErrEmptyResponse is reported when the service returns no candidate text.
var ErrEmptyResponse = errors.New("narrative: empty response")

// Kind tells a generated narrative apart from a substitute.
type Kind int

const (
	KindOK Kind = iota
	KindFallback
)

func (k Kind) String() string {
	if k == KindOK {
		return "ok"
	}
	return "fallback"
}

// Result is the outcome of one narrative call. Text is always printable; Err
// carries the cause of a fallback for logging.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

func OK(text string) Result { return Result{Kind: KindOK, Text: text} }

func Fallback(text string, err error) Result {
	return Result{Kind: KindFallback, Text: text, Err: err}
}

// Config configures the service connection.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
	// CacheSize is how many generated texts are kept per prompt. Zero
	// disables the cache. Fallbacks are never cached.
	CacheSize int
	CacheTTL  time.Duration
}

// Client issues single-attempt generation calls. It is safe for concurrent use.
type Client struct {
	http     *http.Client
	endpoint string
	initErr  error
	model    string
	timeout  time.Duration
	cache    *cache.LRUCache[string]
}

// New builds a client. Extra options are applied after the endpoint and key,
// so tests can substitute the HTTP client. A construction failure is kept and
// turns every later call into a fallback.
func New(cfg Config, opts ...option.ClientOption) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.APIKey == "" {
		cfg.APIKey = PlaceholderAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	all := append([]option.ClientOption{
		option.WithEndpoint(cfg.Endpoint),
		option.WithAPIKey(cfg.APIKey),
	}, opts...)
	hc, endpoint, err := htransport.NewClient(context.Background(), all...)
	if err != nil {
		err = fmt.Errorf("narrative service: %w", err)
		slog.Warn("Narrative client unavailable", applog.FieldComponent, applog.ComponentNarrative, applog.FieldError, err)
	}
	c := &Client{http: hc, endpoint: endpoint, initErr: err, model: cfg.Model, timeout: cfg.Timeout}
	if cfg.CacheSize > 0 {
		if cfg.CacheTTL <= 0 {
			cfg.CacheTTL = DefaultCacheTTL
		}
		c.cache = cache.NewLRUCache[string](cfg.CacheSize, cfg.CacheTTL)
	}
	return c
}

// Cache returns the response cache, or nil when caching is off.
func (c *Client) Cache() cache.Cleaner {
	if c.cache == nil {
		return nil
	}
	return c.cache
}

// Ask sends instruction followed by a JSON rendering of data.
func (c *Client) Ask(ctx context.Context, instruction string, data any) Result {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	return c.generate(ctx, instruction+"\n\nData:\n"+encode(data))
}

func (c *Client) generate(ctx context.Context, prompt string) Result {
	key := c.cacheKey(prompt)
	if c.cache != nil {
		if text, ok := c.cache.Get(key); ok {
			return OK(text)
		}
	}

	res := c.call(ctx, prompt)
	if res.Kind == KindFallback {
		slog.WarnContext(ctx, "Narrative degraded to fallback",
			applog.FieldComponent, applog.ComponentNarrative,
			applog.FieldError, res.Err)
		return res
	}
	if c.cache != nil {
		c.cache.Set(key, res.Text)
	}
	return res
}

func (c *Client) cacheKey(prompt string) string {
	if c.cache == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(c.model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

// Wire shapes of the generateContent method.
type (
	part struct {
		Text string `json:"text"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	generateResponse struct {
		Candidates []struct {
			Content *content `json:"content"`
		} `json:"candidates"`
	}
)

func (c *Client) call(ctx context.Context, prompt string) Result {
	if c.initErr != nil {
		return Fallback(FallbackText, c.initErr)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.generateContent(ctx, prompt)
	if err != nil {
		return Fallback(FallbackText, fmt.Errorf("generate content: %w", err))
	}

	text := firstText(resp)
	if text == "" {
		return Fallback(NoSummaryText, ErrEmptyResponse)
	}
	return OK(text)
}

func (c *Client) generateContent(ctx context.Context, prompt string) (*generateResponse, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return nil, err
	}
	u := strings.TrimRight(c.endpoint, "/") + "/v1beta/models/" + url.PathEscape(c.model) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer googleapi.CloseBody(res)
	if err := googleapi.CheckResponse(res); err != nil {
		return nil, err
	}

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func firstText(resp *generateResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/basket/internal/model"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config selects an OpenAI-compatible chat completions endpoint. Models are
// tried in order; a model that is unknown, overloaded or returns unusable
// output hands over to the next one.
type Config struct {
	BaseURL    string
	APIKey     string
	Models     []string
	MaxRetries int
	Timeout    time.Duration
}

// HTTPError is a non-2xx response from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ai http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// Client is a Gateway backed by a remote language model.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	group      singleflight.Group

	// base is the first retry wait; maxWait caps every wait, Retry-After
	// included.
	base    time.Duration
	maxWait time.Duration
}

var _ Gateway = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"gpt-4o-mini"}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		base:       time.Second,
		maxWait:    10 * time.Second,
	}
}

// Categorize suggests a category for one product. Concurrent calls for the
// same product and category list share one request.
func (c *Client) Categorize(ctx context.Context, productName string, known []model.Category) (Suggestion, error) {
	name := strings.TrimSpace(productName)
	key := strings.ToLower(name) + "\x00" + strings.Join(categoryNames(known), "\x00")

	v, err, _ := c.group.Do(key, func() (any, error) {
		var out Suggestion
		if err := c.complete(ctx, categorizeSystem, categorizePrompt(name, known), &out); err != nil {
			return Suggestion{}, err
		}
		return out, nil
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("categorize %q: %w", name, err)
	}

	s := v.(Suggestion)
	s.CategoryName = strings.TrimSpace(s.CategoryName)
	if s.CategoryName == "" {
		return Suggestion{}, fmt.Errorf("categorize %q: empty category", name)
	}
	if cat, ok := findCategory(known, s.CategoryName); ok {
		return Suggestion{CategoryName: cat.Name, Emoji: cat.Emoji}, nil
	}
	s.IsNew = true
	return s, nil
}

func (c *Client) ParseFreeText(ctx context.Context, text string, known []model.Category) (Parsed, error) {
	var out Parsed
	if err := c.complete(ctx, parseSystem, parsePrompt(text, known), &out); err != nil {
		return Parsed{}, fmt.Errorf("parse text: %w", err)
	}
	out.Items = cleanItems(out.Items)
	out.DishName = strings.TrimSpace(out.DishName)
	return out, nil
}

func (c *Client) GenerateSetItems(ctx context.Context, setName string, known []model.Category) (GeneratedSet, error) {
	var out GeneratedSet
	if err := c.complete(ctx, generateSystem, generatePrompt(setName, known), &out); err != nil {
		return GeneratedSet{}, fmt.Errorf("generate set %q: %w", setName, err)
	}
	out.Items = cleanItems(out.Items)
	if len(out.Items) == 0 {
		return GeneratedSet{}, fmt.Errorf("generate set %q: no items", setName)
	}
	return out, nil
}

func (c *Client) AnalyzeHistory(ctx context.Context, logs []model.PurchaseLog, known []model.Category) ([]Bundle, error) {
	var out struct {
		Bundles []Bundle `json:"bundles"`
	}
	if err := c.complete(ctx, analyzeSystem, analyzePrompt(logs, known), &out); err != nil {
		return nil, fmt.Errorf("analyze history: %w", err)
	}
	bundles := out.Bundles[:0]
	for _, b := range out.Bundles {
		b.Name = strings.TrimSpace(b.Name)
		b.Items = cleanItems(b.Items)
		if b.Name == "" || len(b.Items) == 0 {
			continue
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func cleanItems(items []model.SetItem) []model.SetItem {
	out := items[:0]
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		it.CategoryName = strings.TrimSpace(it.CategoryName)
		if it.Name == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// complete runs one JSON-mode chat request, falling back across models.
func (c *Client) complete(ctx context.Context, system, user string, out any) error {
	if c.cfg.APIKey == "" {
		return ErrNotConfigured
	}

	var lastErr error
	for i, model := range c.cfg.Models {
		content, err := c.chat(ctx, model, system, user)
		if err == nil {
			if err = decodeContent(content, out); err == nil {
				return nil
			}
			err = fmt.Errorf("decode %s reply: %w", model, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !shouldFallback(err) {
			return err
		}
		lastErr = err
		if i < len(c.cfg.Models)-1 {
			c.logger.Warn("model failed, falling back",
				"model", model,
				"next", c.cfg.Models[i+1],
				"error", err,
			)
		}
	}
	return lastErr
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// chat sends one request to model, retrying on rate limits, overload and
// transient network errors.
func (c *Client) chat(ctx context.Context, model, system, user string) (string, error) {
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
		Temperature:    0.2,
	}

	var (
		last    error
		attempt int
		content string
	)
	err := retry.Do(ctx, c.chatBackoff(&last), func(ctx context.Context) error {
		attempt++
		raw, err := c.doOnce(ctx, req)
		if err != nil {
			last = err
			if !isRetryable(err) {
				return err
			}
			c.logger.Warn("ai request failed",
				"model", model,
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"error", err,
			)
			return retry.RetryableError(err)
		}

		var resp chatResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// chatBackoff doubles from base with 20% jitter for MaxRetries retries. When
// the failure *last points at carried a Retry-After, that wait is used
// instead.
func (c *Client) chatBackoff(last *error) retry.Backoff {
	b := retry.NewExponential(c.base)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithCappedDuration(c.maxWait, b)
	b = retry.WithMaxRetries(uint64(c.cfg.MaxRetries), b)

	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if stop {
			return 0, true
		}
		var he *HTTPError
		if errors.As(*last, &he) && he.retryAfter > 0 {
			d = min(he.retryAfter, c.maxWait)
		}
		return d, false
	})
}

func (c *Client) doOnce(ctx context.Context, body chatRequest) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			retryAfter: retryAfter(resp),
		}
	}
	return raw, nil
}

// decodeContent reads a JSON reply, tolerating a surrounding code fence.
func decodeContent(content string, out any) error {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return json.Unmarshal([]byte(s), out)
}

func isRetryableStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return isRetryableStatus(he.StatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// shouldFallback reports whether another model might succeed where this one
// failed. Credential problems and bad requests other than an unknown model
// fail the same way on every model.
func shouldFallback(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == 404:
			return true
		case he.StatusCode == 400:
			return strings.Contains(strings.ToLower(he.Body), "model")
		case he.StatusCode == 401 || he.StatusCode == 403:
			return false
		}
		return isRetryableStatus(he.StatusCode)
	}
	return true
}

func retryAfter(resp *http.Response) time.Duration {
	ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

// StatusError is a non-2xx answer from the datastore.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Code)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Code, e.Message)
}

// Permanent reports whether err is a refusal that repeating the request will
// not change: a 4xx answer other than a timeout or a rate limit.
func Permanent(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.Code >= 400 && se.Code < 500
}

// Client talks to a basketd server over its JSON API. It holds the bearer
// token of the last successful Authenticate.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.RWMutex
	token    string
	userID   string
	familyID string
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithToken restores a token saved from an earlier session.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Authenticate(ctx context.Context, id model.Identity) (*model.Session, error) {
	var s model.Session
	if err := c.do(ctx, "POST", "/api/auth", id, &s); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	c.mu.Lock()
	c.token = s.Token
	c.userID = s.User.ID
	c.familyID = s.Family.ID
	c.mu.Unlock()
	return &s, nil
}

func (c *Client) JoinFamily(ctx context.Context, userID, inviteCode string) (*model.Family, error) {
	if err := c.checkUser(userID); err != nil {
		return nil, err
	}
	var f model.Family
	err := c.do(ctx, "POST", "/api/family/join", map[string]string{"invite_code": inviteCode}, &f)
	if isStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("join family: %w", err)
	}
	c.setFamily(f.ID)
	return &f, nil
}

func (c *Client) LeaveFamily(ctx context.Context, userID string) (*model.Family, error) {
	if err := c.checkUser(userID); err != nil {
		return nil, err
	}
	var f model.Family
	if err := c.do(ctx, "POST", "/api/family/leave", nil, &f); err != nil {
		return nil, fmt.Errorf("leave family: %w", err)
	}
	c.setFamily(f.ID)
	return &f, nil
}

func (c *Client) RemoveMember(ctx context.Context, ownerID, targetID string) (*model.Family, error) {
	if err := c.checkUser(ownerID); err != nil {
		return nil, err
	}
	var f model.Family
	err := c.do(ctx, "DELETE", "/api/family/members/"+url.PathEscape(targetID), nil, &f)
	switch {
	case isStatus(err, http.StatusForbidden):
		return nil, ErrNotOwner
	case isStatus(err, http.StatusNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("remove member: %w", err)
	}
	return &f, nil
}

// ListItems returns the rows of the caller's family. familyID must be the
// family of the authenticated user; the server scopes by token.
func (c *Client) ListItems(ctx context.Context, familyID string) ([]model.Item, error) {
	if err := c.checkFamily(familyID); err != nil {
		return nil, err
	}
	var items []model.Item
	if err := c.do(ctx, "GET", "/api/family/items", nil, &items); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (c *Client) UpsertItem(ctx context.Context, item model.Item) (bool, error) {
	if item.ID == "" {
		return false, errors.New("upsert item: missing id")
	}
	if err := c.do(ctx, "PUT", "/api/items/"+url.PathEscape(item.ID), item, nil); err != nil {
		return false, fmt.Errorf("upsert item: %w", err)
	}
	return true, nil
}

// DeleteItem reports false without error when the row was already gone.
func (c *Client) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	err := c.do(ctx, "DELETE", "/api/items/"+url.PathEscape(itemID), nil, nil)
	if isStatus(err, http.StatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return true, nil
}

func (c *Client) checkUser(userID string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ErrUnauthorized
	}
	if c.userID != "" && c.userID != userID {
		return fmt.Errorf("user %s is not signed in: %w", userID, ErrUnauthorized)
	}
	return nil
}

func (c *Client) checkFamily(familyID string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.familyID != "" && c.familyID != familyID {
		return fmt.Errorf("family %s is not the current family", familyID)
	}
	return nil
}

func (c *Client) setFamily(id string) {
	c.mu.Lock()
	c.familyID = id
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Package sts fetches and caches OIDC tokens from the NAV security token service.
package sts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// expiryMargin is how long before expiry a cached token is refreshed.
const expiryMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Client obtains client-credentials tokens and caches them until shortly before they expire.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// New constructs a Client for the STS at baseURL.
func New(baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		logger:     slog.Default().With(slog.String("component", "sts")),
	}
}

// Token returns a valid token, fetching a new one when the cached token is about to expire.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c == nil {
		return "", fmt.Errorf("sts client not configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires.Add(-expiryMargin)) {
		return c.token, nil
	}

	resp, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}

	c.token = resp.AccessToken
	c.expires = c.expiry(resp)
	c.logger.Debug("fetched sts token", slog.Time("expires", c.expires))
	return c.token, nil
}

func (c *Client) fetch(ctx context.Context) (*tokenResponse, error) {
	url := c.baseURL + "/rest/v1/sts/token?grant_type=client_credentials&scope=openid"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sts response status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("sts response without access_token")
	}
	return &tr, nil
}

// expiry prefers the exp claim of the token and falls back to expires_in.
func (c *Client) expiry(tr *tokenResponse) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
}

// Static is a TokenSource returning a fixed token.
type Static string

func (s Static) Token(context.Context) (string, error) {
	return string(s), nil
}

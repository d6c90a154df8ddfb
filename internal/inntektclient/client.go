// Package inntektclient talks to dp-inntekt-api.
package inntektclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/navikt/dp-datalaster-inntekt/internal/inntekt"
	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
	"github.com/navikt/dp-datalaster-inntekt/internal/sts"
)

// HeaderAPIKey carries the API key on every request.
const HeaderAPIKey = "X-API-KEY"

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Tokens adds a bearer token to every request when set.
	Tokens sts.TokenSource
}

// Client fetches income records. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	tokens     sts.TokenSource
	httpClient *http.Client
}

// New constructs a Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		tokens:  cfg.Tokens,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type inntektRequest struct {
	AktorID        string `json:"aktørId"`
	VedtakID       int64  `json:"vedtakId"`
	BeregningsDato string `json:"beregningsDato"`
}

// Fetch computes the income record for a subject, decision and calculation date.
// Every failure is returned as a *problem.Error.
func (c *Client) Fetch(ctx context.Context, aktorID string, vedtakID int64, beregningsDato time.Time) (*inntekt.Inntekt, error) {
	if c == nil {
		return nil, problem.New(problem.Fallback(), fmt.Errorf("inntekt client not configured"))
	}

	body, err := json.Marshal(inntektRequest{
		AktorID:        aktorID,
		VedtakID:       vedtakID,
		BeregningsDato: beregningsDato.Format("2006-01-02"),
	})
	if err != nil {
		return nil, problem.New(problem.Fallback(), fmt.Errorf("marshal request: %w", err))
	}

	return c.do(ctx, http.MethodPost, c.baseURL+"/v1/inntekt", body)
}

// FetchByID returns a previously computed income record.
func (c *Client) FetchByID(ctx context.Context, inntektsID string) (*inntekt.Inntekt, error) {
	if c == nil {
		return nil, problem.New(problem.Fallback(), fmt.Errorf("inntekt client not configured"))
	}
	return c.do(ctx, http.MethodGet, c.baseURL+"/v1/inntekt/"+url.PathEscape(inntektsID), nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*inntekt.Inntekt, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fail(0, nil, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, c.apiKey)

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fail(0, nil, fmt.Errorf("get token: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, nil, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fail(resp.StatusCode, nil, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, respBody, fmt.Errorf("inntekt api response status %d", resp.StatusCode))
	}

	var result inntekt.Inntekt
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fail(resp.StatusCode, nil, fmt.Errorf("decode response: %w", err))
	}
	if err := result.Validate(); err != nil {
		return nil, fail(resp.StatusCode, nil, err)
	}
	return &result, nil
}

func fail(status int, body []byte, err error) error {
	return problem.New(Classify(status, body, err), err)
}

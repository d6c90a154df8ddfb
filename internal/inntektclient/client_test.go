package inntektclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navikt/dp-datalaster-inntekt/internal/problem"
	"github.com/navikt/dp-datalaster-inntekt/internal/sts"
)

func examplePayload(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/example-klassifisert-inntekt-payload.json")
	require.NoError(t, err)
	return data
}

func requireProblem(t *testing.T, err error) problem.Problem {
	t.Helper()
	require.Error(t, err)
	p, ok := problem.From(err)
	require.True(t, ok, "expected a problem error, got %v", err)
	return p
}

func TestFetch_OK(t *testing.T) {
	payload := examplePayload(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/inntekt", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get(HeaderAPIKey))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1234", req["aktørId"])
		assert.Equal(t, float64(123), req["vedtakId"])
		assert.Equal(t, "2019-01-25", req["beregningsDato"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/", APIKey: "api-key", Timeout: time.Second})

	result, err := client.Fetch(context.Background(), "1234", 123, time.Date(2019, 1, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "12345", result.InntektsID)
	assert.Equal(t, "2017-09", result.SisteAvsluttendeKalenderManed.String())

	// Months keep the order dp-inntekt-api delivered them in.
	require.Len(t, result.InntektsListe, 3)
	assert.Equal(t, "2017-09", result.InntektsListe[0].ArManed.String())
	assert.Equal(t, "2017-07", result.InntektsListe[1].ArManed.String())
	assert.Equal(t, "2017-08", result.InntektsListe[2].ArManed.String())
}

func TestFetchByID_OK(t *testing.T) {
	payload := examplePayload(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/inntekt/ULID", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get(HeaderAPIKey))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "api-key", Timeout: time.Second})

	result, err := client.FetchByID(context.Background(), "ULID")
	require.NoError(t, err)
	assert.Equal(t, "12345", result.InntektsID)
}

func TestFetch_ServerErrorWithProblem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{
			"type": "urn:dp:error:inntektskomponenten",
			"title": "Klarte ikke å hente inntekt for beregningen",
			"status": 500,
			"detail": "Innhenting av inntekt mot inntektskomponenten feilet."
		}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "api-key", Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "", 123, time.Now())
	p := requireProblem(t, err)
	assert.Equal(t, "urn:dp:error:inntektskomponenten", p.Type)
	assert.Equal(t, "Klarte ikke å hente inntekt for beregningen", p.Title)
	assert.Equal(t, 500, p.StatusCode())
	assert.Equal(t, "Innhenting av inntekt mot inntektskomponenten feilet.", p.Detail)
}

func TestFetch_ErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "api-key", Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "", 123, time.Now())
	p := requireProblem(t, err)
	assert.Equal(t, "urn:dp:error:inntektskomponenten", p.Type)
	assert.Equal(t, "Klarte ikke å hente inntekt", p.Title)
	assert.Equal(t, 500, p.StatusCode())
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := New(Config{BaseURL: server.URL, APIKey: "api-key", Timeout: 50 * time.Millisecond})

	_, err := client.Fetch(context.Background(), "1", 1, time.Now())
	p := requireProblem(t, err)
	assert.Equal(t, problem.Fallback(), p)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(Config{BaseURL: url, APIKey: "api-key", Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "1", 1, time.Now())
	assert.Equal(t, problem.Fallback(), requireProblem(t, err))
}

func TestFetch_UndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"inntektsId":`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "api-key", Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "1", 1, time.Now())
	assert.Equal(t, problem.Fallback(), requireProblem(t, err))
}

type failingTokens struct{}

func (failingTokens) Token(context.Context) (string, error) {
	return "", errors.New("sts unavailable")
}

func TestFetch_BearerToken(t *testing.T) {
	payload := examplePayload(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sts-token", r.Header.Get("Authorization"))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "api-key", Timeout: time.Second, Tokens: sts.Static("sts-token")})
	_, err := client.Fetch(context.Background(), "1", 1, time.Now())
	require.NoError(t, err)

	client = New(Config{BaseURL: server.URL, APIKey: "api-key", Timeout: time.Second, Tokens: failingTokens{}})
	_, err = client.Fetch(context.Background(), "1", 1, time.Now())
	assert.Equal(t, problem.Fallback(), requireProblem(t, err))
}

func TestNilClient(t *testing.T) {
	var c *Client
	_, err := c.Fetch(context.Background(), "1", 1, time.Now())
	assert.Equal(t, problem.Fallback(), requireProblem(t, err))
}

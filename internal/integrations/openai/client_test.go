package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"culinary-assistant/internal/domain"
)

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()
	require.Equal(t, "https://api.openai.com/v1", c.baseURL)
	require.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestNewClient_WithTimeout(t *testing.T) {
	c := NewClient(WithTimeout(5 * time.Second))
	require.Equal(t, 5*time.Second, c.httpClient.Timeout)

	c = NewClient(WithTimeout(0))
	require.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestNewClient_WithHTTPClientWins(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c := NewClient(WithTimeout(5*time.Second), WithHTTPClient(hc))
	require.Same(t, hc, c.httpClient)
}

// ---------------------------------------------------------------------------
// Client.Chat
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
}

func testRequest() domain.ChatRequest {
	return domain.ChatRequest{
		Model: "gpt-3.5-turbo",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "be a chef"},
			{Role: domain.RoleUser, Content: "hi"},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}
}

type sentRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
}

func TestClient_Chat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var sent sentRequest
		require.NoError(t, json.Unmarshal(raw, &sent))
		require.Equal(t, "gpt-3.5-turbo", sent.Model)
		require.InDelta(t, 0.7, sent.Temperature, 1e-6)
		require.Equal(t, 500, sent.MaxTokens)
		require.Equal(t, []domain.ChatMessage{
			{Role: "system", Content: "be a chef"},
			{Role: "user", Content: "hi"},
		}, sent.Messages)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1670000000,
			"choices": [{
				"index": 0,
				"message": { "role": "assistant", "content": "Use applesauce or oil." }
			}]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	reply, err := c.Chat(context.Background(), "sk-test", testRequest())
	require.NoError(t, err)
	require.Equal(t, "Use applesauce or oil.", reply)
}

func TestClient_Chat_UsesFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"first"}},{"message":{"content":"second"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	reply, err := c.Chat(context.Background(), "sk-test", testRequest())
	require.NoError(t, err)
	require.Equal(t, "first", reply)
}

func TestClient_Chat_Non200KeepsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 429, statusErr.HTTPStatusCode())
	require.Equal(t, "rate limited", statusErr.UpstreamBody())
	require.Contains(t, err.Error(), "unexpected status 429")
}

func TestClient_Chat_Non200JSONBodyIsVerbatim(t *testing.T) {
	body := `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, body, statusErr.Body)
}

func TestClient_Chat_Non200SuccessRangeIsStillAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(202)
		_, _ = w.Write([]byte(`accepted`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 202, statusErr.StatusCode)
}

func TestClient_Chat_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	require.Error(t, err)

	var shapeErr *MalformedResponseError
	require.ErrorAs(t, err, &shapeErr)
	require.True(t, shapeErr.MalformedResponse())
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Chat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	var shapeErr *MalformedResponseError
	require.ErrorAs(t, err, &shapeErr)
	require.Contains(t, err.Error(), "no choices")
}

func TestClient_Chat_MissingChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	var shapeErr *MalformedResponseError
	require.ErrorAs(t, err, &shapeErr)
}

func TestClient_Chat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.True(t, transportErr.Timeout())
}

func TestClient_Chat_NetworkError(t *testing.T) {
	c := NewClient(
		WithBaseURL("http://127.0.0.1:1"),
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}),
	)

	_, err := c.Chat(context.Background(), "sk-test", testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.False(t, transportErr.Timeout())
}

func TestClient_Chat_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv)
	_, err := c.Chat(ctx, "sk-test", testRequest())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestClient_Chat_EmptyModel(t *testing.T) {
	c := NewClient()
	req := testRequest()
	req.Model = ""
	_, err := c.Chat(context.Background(), "sk-test", req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClient_Chat_EmptyKey(t *testing.T) {
	c := NewClient()
	_, err := c.Chat(context.Background(), "", testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

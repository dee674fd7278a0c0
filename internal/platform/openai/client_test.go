package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/devcontext-backend/internal/pkg/httpx"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	c, err := New(logger.Nop(), Config{APIKey: "sk-test", BaseURL: "http://openai.local", BatchSize: 2, MaxRetries: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func jsonResponse(status int, v any) *http.Response {
	raw, _ := json.Marshal(v)
	return &http.Response{StatusCode: status, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader(raw))}
}

func TestEmbedBatchesAndReorders(t *testing.T) {
	var calls int
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if r.URL.Path != "/v1/embeddings" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth header: got=%q", got)
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{"index": i, "embedding": []float64{float64(len(req.Input[i]))}})
		}
		return jsonResponse(http.StatusOK, map[string]any{"data": data}), nil
	})

	vecs, err := c.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
	for i, want := range []float32{1, 2, 3} {
		if vecs[i][0] != want {
			t.Fatalf("vec[%d]: want=%v got=%v", i, want, vecs[i][0])
		}
	}
}

func TestEmbedSurfacesStatusError(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusUnauthorized, Header: make(http.Header), Body: io.NopCloser(strings.NewReader(`{"error":"bad key"}`))}, nil
	})
	_, err := c.Embed(context.Background(), []string{"x"})
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want StatusError 401 got=%v", err)
	}
}

func TestNewFromEnvDisabledWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c, err := NewFromEnv(logger.Nop())
	if err != nil || c != nil {
		t.Fatalf("NewFromEnv: want nil,nil got=%v,%v", c, err)
	}
}

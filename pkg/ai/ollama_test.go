package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbed(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       []float64
		wantStatus Status
		wantCode   int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"embedding":[0.1,-0.2,3]}`,
			want:   []float64{0.1, -0.2, 3},
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantStatus: StatusHTTPError,
			wantCode:   http.StatusInternalServerError,
		},
		{
			name:       "not json",
			status:     http.StatusOK,
			body:       `<html>`,
			wantStatus: StatusMalformedResponse,
		},
		{
			name:       "missing embedding",
			status:     http.StatusOK,
			body:       `{"error":"model not found"}`,
			wantStatus: StatusMalformedResponse,
		},
		{
			name:       "non numeric value",
			status:     http.StatusOK,
			body:       `{"embedding":[0.1,"x"]}`,
			wantStatus: StatusMalformedResponse,
		},
		{
			name:       "empty embedding",
			status:     http.StatusOK,
			body:       `{"embedding":[]}`,
			wantStatus: StatusMalformedResponse,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got ollamaEmbedRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewOllamaEmbedder(srv.URL, "nomic")
			vec, err := c.Embed(context.Background(), "สวัสดี")
			assert.Equal(t, "nomic", got.Model)
			assert.Equal(t, "สวัสดี", got.Prompt)

			if tc.wantStatus == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.want, vec)
				return
			}
			require.Error(t, err)
			u, ok := AsUnavailable(err)
			require.True(t, ok, "expected UnavailableError, got %T", err)
			assert.Equal(t, EmbeddingService, u.Service)
			assert.Equal(t, tc.wantStatus, u.Status)
			assert.Equal(t, tc.wantCode, u.StatusCode)
			assert.Nil(t, vec)
		})
	}
}

func TestOllamaEmbedTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(done)

	c := NewOllamaEmbedder(srv.URL, "", WithTimeout(50*time.Millisecond))
	_, err := c.Embed(context.Background(), "hello")
	u, ok := AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, StatusTimeout, u.Status)
}

func TestOllamaEmbedConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewOllamaEmbedder(url, "").Embed(context.Background(), "hello")
	u, ok := AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, StatusConnectionError, u.Status)
}

func TestOllamaGenerate(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"qwen","response":"  ตอบ  ","done":true}`))
	}))
	defer srv.Close()

	c := NewOllamaGenerator(srv.URL, "qwen")
	out, err := c.Generate(context.Background(), "prompt", GenerateOptions{Temperature: Float(0.7), TopP: Float(0.9), MaxTokens: 1000})
	require.NoError(t, err)
	assert.Equal(t, "ตอบ", out)
	assert.Equal(t, "qwen", got.Model)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options.Temperature)
	assert.Equal(t, 0.7, *got.Options.Temperature)
	require.NotNil(t, got.Options.TopP)
	assert.Equal(t, 0.9, *got.Options.TopP)
	assert.Equal(t, 1000, got.Options.MaxTokens)
}

func TestOllamaGenerateSamplingOptions(t *testing.T) {
	tests := []struct {
		name string
		opts GenerateOptions
		want string
	}{
		{
			name: "explicit zero is sent",
			opts: GenerateOptions{Temperature: Float(0), TopP: Float(0), MaxTokens: 50},
			want: `{"temperature":0,"top_p":0,"max_tokens":50}`,
		},
		{
			name: "unset values use the service default",
			opts: GenerateOptions{Temperature: Float(0.5)},
			want: `{"temperature":0.5}`,
		},
		{
			name: "nothing set",
			want: `{}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var options json.RawMessage
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Options json.RawMessage `json:"options"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				options = body.Options
				_, _ = w.Write([]byte(`{"response":"ok"}`))
			}))
			defer srv.Close()

			_, err := NewOllamaGenerator(srv.URL, "").Generate(context.Background(), "p", tc.opts)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(options))
		})
	}
}

func TestOllamaGenerateMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":42}`))
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(srv.URL, "").Generate(context.Background(), "p", GenerateOptions{})
	u, ok := AsUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, GenerationService, u.Service)
	assert.Equal(t, StatusMalformedResponse, u.Status)
}

func TestOllamaProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 10, req.Options.MaxTokens)
		_, _ = w.Write([]byte(`{"response":"hi"}`))
	}))
	defer srv.Close()

	c := NewOllamaGenerator(srv.URL, "m")
	assert.NoError(t, c.Probe(context.Background()))
	assert.Equal(t, "m", c.ModelName())
}

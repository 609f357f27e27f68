package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/common"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid config",
			config: Config{APIKey: "test-key"},
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
		{
			name: "custom model and settings",
			config: Config{
				APIKey:      "test-key",
				Model:       "gpt-4o",
				Temperature: 0.5,
				MaxTokens:   200,
				BaseURL:     "http://localhost:1234/",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
			assert.False(t, strings.HasSuffix(client.baseURL, "/"))
		})
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		want       string
		wantKind   ErrorKind
		statusCode int
	}{
		{
			name:       "success",
			statusCode: http.StatusOK,
			body:       `{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"category_slug\":\"dtc_sales\"}"}}]}`,
			want:       `{"category_slug":"dtc_sales"}`,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			body:       `{"error":{"message":"slow down"}}`,
			wantKind:   KindRateLimit,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			body:       `oops`,
			wantKind:   KindHTTPStatus,
		},
		{
			name:       "no choices",
			statusCode: http.StatusOK,
			body:       `{"id":"1","choices":[]}`,
			wantKind:   KindMalformedResponse,
		},
		{
			name:       "not json",
			statusCode: http.StatusOK,
			body:       `<html>`,
			wantKind:   KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				var req map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "gpt-4o-mini", req["model"])
				assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
			require.NoError(t, err)

			got, err := client.Complete(context.Background(), Request{System: "sys", Prompt: "prompt"})
			if tt.wantKind != "" {
				var perr *ProviderError
				require.True(t, errors.As(err, &perr), "expected ProviderError, got %v", err)
				assert.Equal(t, tt.wantKind, perr.Kind)
				assert.Equal(t, ProviderOpenAI, perr.Provider)
				assert.ErrorIs(t, err, common.ErrProviderFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenAIClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Complete(ctx, Request{Prompt: "prompt"})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindTimeout, perr.Kind)
	assert.True(t, perr.Temporary())
}

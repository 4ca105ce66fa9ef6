package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"prompt-optimiser-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "hello back"}, Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	out, err := llm.Complete(context.Background(), p, "sys", "hello", llm.WithModel("qwen2.5"), llm.WithTemperature(0.2))

	require.NoError(t, err)
	assert.Equal(t, "hello back", out)
	assert.Equal(t, "qwen2.5", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, llm.RoleSystem, got.Messages[0].Role)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
	assert.Empty(t, got.Format)
}

func TestChatRequestsJSONFormat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "{}"}, Done: true})
	}))
	defer srv.Close()

	_, err := llm.Complete(context.Background(), NewOllamaProvider(srv.URL, "llama3"), "sys", "hello", llm.WithJSONResponse())

	require.NoError(t, err)
	assert.Equal(t, "json", got.Format)
}

func TestChatStatusCategories(t *testing.T) {
	tests := []struct {
		status int
		want   llm.Category
	}{
		{http.StatusForbidden, llm.CategoryUnauthorized},
		{http.StatusTooManyRequests, llm.CategoryRateLimited},
		{http.StatusBadGateway, llm.CategoryOther},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, err := NewOllamaProvider(srv.URL, "llama3").Generate(context.Background(), "hi")
		var statusErr *llm.StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, tt.want, statusErr.Category())
		srv.Close()
	}
}

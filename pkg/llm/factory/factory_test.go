package factory

import (
	"testing"

	"prompt-optimiser-be/pkg/llm/anthropic"
	"prompt-optimiser-be/pkg/llm/huggingface"
	"prompt-optimiser-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		check   func(t *testing.T, p interface{})
		wantErr bool
	}{
		{
			name: "anthropic",
			cfg:  Config{Provider: "anthropic", APIKey: "k", Model: "claude-sonnet-4-5"},
			check: func(t *testing.T, p interface{}) {
				assert.IsType(t, &anthropic.AnthropicProvider{}, p)
			},
		},
		{name: "anthropic without key", cfg: Config{Provider: "anthropic"}, wantErr: true},
		{
			name: "ollama",
			cfg:  Config{Provider: "ollama", Model: "llama3"},
			check: func(t *testing.T, p interface{}) {
				assert.IsType(t, &ollama.OllamaProvider{}, p)
			},
		},
		{
			name: "huggingface",
			cfg:  Config{Provider: "huggingface", APIKey: "k", Model: "m"},
			check: func(t *testing.T, p interface{}) {
				assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)
			},
		},
		{name: "unknown", cfg: Config{Provider: "acme"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

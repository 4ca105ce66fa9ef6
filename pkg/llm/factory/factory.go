package factory

import (
	"fmt"

	"prompt-optimiser-be/pkg/llm"
	"prompt-optimiser-be/pkg/llm/anthropic"
	"prompt-optimiser-be/pkg/llm/huggingface"
	"prompt-optimiser-be/pkg/llm/ollama"
)

type Config struct {
	Provider string // "anthropic" | "ollama" | "huggingface"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return anthropic.NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

package factory

import (
	"context"
	"fmt"

	"ai-textassist-be/pkg/llm"
	"ai-textassist-be/pkg/llm/gemini"
	"ai-textassist-be/pkg/llm/ollama"
	"ai-textassist-be/pkg/llm/openai"
)

type Options struct {
	Provider      string
	Model         string
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	OllamaBaseURL string
}

func NewLLMProvider(ctx context.Context, opts Options) (llm.Provider, error) {
	switch opts.Provider {
	case "openai", "":
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(opts.OpenAIKey, opts.OpenAIBaseURL, opts.Model), nil
	case "gemini":
		if opts.GeminiKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(ctx, opts.GeminiKey, opts.Model)
	case "ollama":
		baseURL := opts.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, opts.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", opts.Provider)
	}
}

package providers

import (
	"fmt"
	"strings"

	"paperbase/internal/config"
)

// ProviderRef is a parsed provider selector, e.g. "openai" or "openai:work"
// where the suffix picks an API-key alias.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

func ParseProviderRef(raw string) ProviderRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ProviderRef{Raw: "mock", Name: "mock"}
	}
	ref := ProviderRef{Raw: raw, Name: raw}
	if strings.Contains(raw, ":") {
		x := strings.SplitN(raw, ":", 2)
		ref.Name = strings.TrimSpace(x[0])
		ref.KeyAlias = strings.TrimSpace(x[1])
	}
	return ref
}

// BuildEmbedding constructs the embedding provider named by the config.
func BuildEmbedding(cfg config.Config) (EmbeddingProvider, error) {
	ref := ParseProviderRef(cfg.Embedding.Provider)
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(cfg.Embedding.Dimension), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias, cfg.Embedding.Model, cfg.LLM.Model), nil
	case "ollama":
		return NewOllamaProvider(cfg.Embedding.Model, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ref.Name)
	}
}

// BuildLLM constructs the generation provider named by the config.
func BuildLLM(cfg config.Config) (LLMProvider, error) {
	ref := ParseProviderRef(cfg.LLM.Provider)
	if ref.KeyAlias == "" {
		ref.KeyAlias = cfg.LLM.KeyAlias
	}
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(cfg.Embedding.Dimension), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias, cfg.Embedding.Model, cfg.LLM.Model), nil
	case "ollama":
		return NewOllamaProvider(cfg.Embedding.Model, cfg.LLM.Model), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", ref.Name)
	}
}

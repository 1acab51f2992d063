package engine

import "fmt"

// Backend names accepted by New.
const (
	BackendOpenAI    = "openai"
	BackendOllama    = "ollama"
	BackendLangChain = "langchain"
)

// Config selects and locates an inference backend.
type Config struct {
	Backend string
	BaseURL string
	APIKey  string
	// Model is the default model; only the langchain backend binds it at
	// construction.
	Model string
}

// New returns the Engine named by cfg.Backend. An empty backend selects the
// OpenAI-compatible client.
func New(cfg Config) (Engine, error) {
	switch cfg.Backend {
	case "", BackendOpenAI:
		return NewOpenAIEngine(cfg.BaseURL, cfg.APIKey), nil
	case BackendOllama:
		return NewOllamaEngine(cfg.BaseURL), nil
	case BackendLangChain:
		return NewLangChainEngine(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.Backend)
	}
}

package engine

import (
	"context"

	"github.com/kalambet/ecoswap/internal/ollama"
)

var (
	_ Engine      = (*OllamaEngine)(nil)
	_ ModelPuller = (*OllamaEngine)(nil)
)

// OllamaEngine serves chat through a local Ollama instance and can pull
// missing models. IsRunning, ListModels and HasModel come from the
// embedded client.
type OllamaEngine struct {
	*ollama.Client
}

func NewOllamaEngine(baseURL string) *OllamaEngine {
	return &OllamaEngine{Client: ollama.New(baseURL)}
}

func (e *OllamaEngine) Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error) {
	msgs := make([]ollama.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, ollama.Message(m))
	}
	return e.Client.Chat(ctx, model, msgs, &ollama.Options{Temperature: opts.Temperature})
}

func (e *OllamaEngine) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	if onProgress == nil {
		return e.Client.PullModel(ctx, name, nil)
	}
	return e.Client.PullModel(ctx, name, func(p ollama.PullProgress) {
		onProgress(PullProgress(p))
	})
}

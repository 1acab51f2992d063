package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainEngine generates completions through a langchaingo model pointed
// at an OpenAI-compatible endpoint. Model discovery and health checks go
// straight to the endpoint since langchaingo does not expose them.
type LangChainEngine struct {
	llm   llms.Model
	probe *OpenAIEngine
}

// NewLangChainEngine creates a langchaingo-backed engine. langchaingo
// requires a token even for servers that ignore it, so "none" is used when
// apiKey is empty.
func NewLangChainEngine(baseURL, apiKey, model string) (*LangChainEngine, error) {
	token := apiKey
	if token == "" {
		token = "none"
	}
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating langchain client: %w", err)
	}
	return &LangChainEngine{llm: llm, probe: NewOpenAIEngine(baseURL, apiKey)}, nil
}

func (e *LangChainEngine) Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, m := range messages {
		content[i] = llms.MessageContent{
			Role:  chatMessageType(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		}
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if model != "" {
		callOpts = append(callOpts, llms.WithModel(model))
	}

	resp, err := e.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return resp.Choices[0].Content, nil
}

func (e *LangChainEngine) IsRunning(ctx context.Context) bool {
	return e.probe.IsRunning(ctx)
}

func (e *LangChainEngine) ListModels(ctx context.Context) ([]string, error) {
	return e.probe.ListModels(ctx)
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

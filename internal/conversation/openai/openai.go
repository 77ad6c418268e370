// Package openai implements the conversation Proxy with the OpenAI Chat
// Completions API.
//
// Setting a base URL points it at any OpenAI-compatible server instead
// (Ollama, vLLM, llama.cpp server), which is how a fully local model is used.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/AtharvRG/Zenith-AI/internal/config"
	"github.com/AtharvRG/Zenith-AI/internal/conversation"
)

// finishContentFilter is the finish reason reported when moderation cuts
// the answer short.
const finishContentFilter = "content_filter"

// Proxy streams answers from a chat completions endpoint.
type Proxy struct {
	client       openai.Client
	model        string
	systemPrompt string
}

// New creates an OpenAI proxy. An API key is required unless BaseURL points
// at a local server, which usually ignores it.
func New(cfg config.OpenAIConfig, systemPrompt string) (*Proxy, error) {
	return newProxy(cfg, systemPrompt)
}

func newProxy(cfg config.OpenAIConfig, systemPrompt string, extra ...option.RequestOption) (*Proxy, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai api key is not set")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "local"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	if systemPrompt == "" {
		systemPrompt = conversation.DefaultSystemPrompt
	}
	return &Proxy{
		client:       openai.NewClient(opts...),
		model:        model,
		systemPrompt: systemPrompt,
	}, nil
}

// Name returns the backend identifier.
func (p *Proxy) Name() string { return "openai" }

// Stream sends the history plus prompt and yields content deltas.
func (p *Proxy) Stream(ctx context.Context, history []conversation.Turn, prompt string) iter.Seq[conversation.Fragment] {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(p.systemPrompt))
	for _, t := range history {
		if t.Role == conversation.RoleUser {
			messages = append(messages, openai.UserMessage(t.Text))
		} else {
			messages = append(messages, openai.AssistantMessage(t.Text))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}

	return func(yield func(conversation.Fragment) bool) {
		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				if !yield(conversation.Text(choice.Delta.Content)) {
					return
				}
			}
			if choice.FinishReason == finishContentFilter {
				slog.Warn("openai content filtered")
				yield(conversation.Blocked(finishContentFilter))
				return
			}
		}
		if err := stream.Err(); err != nil {
			slog.Error("openai stream failed", "error", err)
			yield(conversation.Failure(err))
		}
	}
}

// Describe sends the image inline as a data URL next to the question.
func (p *Proxy) Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(conversation.ImagePrompt(p.systemPrompt, prompt)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai image analysis: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no choices returned from chat API")
	}
	choice := completion.Choices[0]
	if choice.FinishReason == finishContentFilter {
		return "", &conversation.BlockedError{Reason: finishContentFilter}
	}
	return choice.Message.Content, nil
}

// Close is a no-op for the OpenAI proxy.
func (p *Proxy) Close() error { return nil }

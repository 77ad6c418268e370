// Package anthropic implements the conversation Proxy with the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AtharvRG/Zenith-AI/internal/config"
	"github.com/AtharvRG/Zenith-AI/internal/conversation"
)

// stopRefusal is the stop reason reported when the model declines to answer.
const stopRefusal = "refusal"

// Proxy streams answers from a Claude model.
type Proxy struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	systemPrompt string
}

// New creates an Anthropic proxy. baseURL overrides the API endpoint and is
// empty outside tests.
func New(cfg config.AnthropicConfig, systemPrompt, baseURL string, extra ...option.RequestOption) (*Proxy, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if systemPrompt == "" {
		systemPrompt = conversation.DefaultSystemPrompt
	}
	return &Proxy{
		client:       anthropic.NewClient(opts...),
		model:        model,
		maxTokens:    maxTokens,
		systemPrompt: systemPrompt,
	}, nil
}

// Name returns the backend identifier.
func (p *Proxy) Name() string { return "anthropic" }

// Stream sends the history plus prompt and yields text deltas.
func (p *Proxy) Stream(ctx context.Context, history []conversation.Turn, prompt string) iter.Seq[conversation.Fragment] {
	turns := append(history[:len(history):len(history)], conversation.Turn{Role: conversation.RoleUser, Text: prompt})
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: p.systemPrompt}},
		Messages:  toMessages(turns),
	}

	return func(yield func(conversation.Fragment) bool) {
		stream := p.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !yield(conversation.Text(delta.Text)) {
						return
					}
				}
			case anthropic.MessageDeltaEvent:
				if string(ev.Delta.StopReason) == stopRefusal {
					slog.Warn("anthropic refused to answer")
					yield(conversation.Blocked(stopRefusal))
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			slog.Error("anthropic stream failed", "error", err)
			yield(conversation.Failure(err))
		}
	}
}

// Describe sends the image as a base64 block next to the question.
func (p *Proxy) Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(conversation.ImagePrompt(p.systemPrompt, prompt)),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic image analysis: %w", err)
	}
	if string(msg.StopReason) == stopRefusal {
		return "", &conversation.BlockedError{Reason: stopRefusal}
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Close is a no-op for the Anthropic proxy.
func (p *Proxy) Close() error { return nil }

// toMessages converts turns into the strictly alternating user/assistant
// sequence the Messages API requires. Leading assistant turns are dropped
// and consecutive turns from the same side are joined.
func toMessages(turns []conversation.Turn) []anthropic.MessageParam {
	type merged struct {
		role conversation.Role
		text []string
	}
	var runs []merged
	for _, t := range turns {
		if len(runs) == 0 && t.Role != conversation.RoleUser {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].role == t.Role {
			runs[n-1].text = append(runs[n-1].text, t.Text)
			continue
		}
		runs = append(runs, merged{role: t.Role, text: []string{t.Text}})
	}

	out := make([]anthropic.MessageParam, 0, len(runs))
	for _, r := range runs {
		block := anthropic.NewTextBlock(strings.Join(r.text, "\n\n"))
		if r.role == conversation.RoleUser {
			out = append(out, anthropic.NewUserMessage(block))
		} else {
			out = append(out, anthropic.NewAssistantMessage(block))
		}
	}
	return out
}

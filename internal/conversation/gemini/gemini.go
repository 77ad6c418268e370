// Package gemini implements the conversation Proxy with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/AtharvRG/Zenith-AI/internal/config"
	"github.com/AtharvRG/Zenith-AI/internal/conversation"
)

// Proxy streams answers from a Gemini model.
type Proxy struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

// New creates a Gemini proxy. baseURL overrides the API endpoint and is
// empty outside tests.
func New(ctx context.Context, cfg config.GeminiConfig, systemPrompt, baseURL string) (*Proxy, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if systemPrompt == "" {
		systemPrompt = conversation.DefaultSystemPrompt
	}
	return &Proxy{client: client, model: model, systemPrompt: systemPrompt}, nil
}

// Name returns the backend identifier.
func (p *Proxy) Name() string { return "gemini" }

// safetySettings block medium-and-above harm in the four standard categories.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

func (p *Proxy) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.systemPrompt, genai.RoleUser),
		SafetySettings:    safetySettings,
	}
}

// Stream sends the history plus prompt and yields text as it arrives.
func (p *Proxy) Stream(ctx context.Context, history []conversation.Turn, prompt string) iter.Seq[conversation.Fragment] {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, genai.NewContentFromText(t.Text, roleFor(t.Role)))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	return func(yield func(conversation.Fragment) bool) {
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, p.generationConfig()) {
			if err != nil {
				slog.Error("gemini stream failed", "error", err)
				yield(conversation.Failure(err))
				return
			}
			if reason := blockReason(resp); reason != "" {
				slog.Warn("gemini content blocked", "reason", reason)
				yield(conversation.Blocked(reason))
				return
			}
			if text := responseText(resp); text != "" {
				if !yield(conversation.Text(text)) {
					return
				}
			}
		}
	}
}

// Describe answers prompt about one image.
func (p *Proxy) Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(conversation.ImagePrompt(p.systemPrompt, prompt)),
		genai.NewPartFromBytes(image, mimeType),
	}, genai.RoleUser)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{content},
		&genai.GenerateContentConfig{SafetySettings: safetySettings})
	if err != nil {
		return "", fmt.Errorf("gemini image analysis: %w", err)
	}
	if reason := blockReason(resp); reason != "" {
		return "", &conversation.BlockedError{Reason: reason}
	}
	return responseText(resp), nil
}

// Close is a no-op; the genai client holds no resources beyond its HTTP client.
func (p *Proxy) Close() error { return nil }

func roleFor(r conversation.Role) genai.Role {
	if r == conversation.RoleUser {
		return genai.RoleUser
	}
	return genai.RoleModel
}

// blockReason returns why the prompt or the first candidate was blocked.
func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" && pf.BlockReason != genai.BlockedReasonUnspecified {
		return string(pf.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return string(genai.FinishReasonSafety)
	}
	return ""
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

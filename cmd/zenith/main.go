// Zenith is the local backend of the Zenith desktop assistant. It executes
// simple commands itself (notes, app launches, web searches) and forwards
// everything else to a conversation backend.
//
// Usage:
//
//	zenith [serve] [--config /path/to/zenith.yaml]
//	zenith classify "open notepad"
//	zenith apps list
//	zenith history
//
// @title       Zenith Assistant Backend
// @version     1.0
// @description Local backend for the Zenith desktop assistant: command engine, conversation streaming, image analysis and speech transcription.
// @host        127.0.0.1:5111
// @BasePath    /
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/AtharvRG/Zenith-AI/docs"
	"github.com/AtharvRG/Zenith-AI/internal/config"
	"github.com/AtharvRG/Zenith-AI/internal/conversation"
	anthropicproxy "github.com/AtharvRG/Zenith-AI/internal/conversation/anthropic"
	geminiproxy "github.com/AtharvRG/Zenith-AI/internal/conversation/gemini"
	openaiproxy "github.com/AtharvRG/Zenith-AI/internal/conversation/openai"
	"github.com/AtharvRG/Zenith-AI/internal/speech"
	"github.com/AtharvRG/Zenith-AI/internal/speech/whisper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newProxy initializes the configured conversation backend. A nil proxy
// with a nil error means the backend is disabled; the HTTP routes that need
// it then answer 503.
func newProxy(ctx context.Context, cfg config.ConversationConfig) (conversation.Proxy, error) {
	switch cfg.Backend {
	case "gemini":
		p, err := geminiproxy.New(ctx, cfg.Gemini, cfg.SystemPrompt, "")
		if err != nil {
			return nil, err
		}
		slog.Info("using Gemini conversation backend", "model", cfg.Gemini.Model)
		return p, nil
	case "openai":
		p, err := openaiproxy.New(cfg.OpenAI, cfg.SystemPrompt)
		if err != nil {
			return nil, err
		}
		slog.Info("using OpenAI conversation backend", "model", cfg.OpenAI.Model, "base_url", cfg.OpenAI.BaseURL)
		return p, nil
	case "anthropic":
		p, err := anthropicproxy.New(cfg.Anthropic, cfg.SystemPrompt, "")
		if err != nil {
			return nil, err
		}
		slog.Info("using Anthropic conversation backend", "model", cfg.Anthropic.Model)
		return p, nil
	case "none", "":
		slog.Warn("conversation backend disabled, free-form queries will be rejected")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown conversation backend %q", cfg.Backend)
	}
}

// newTranscriber initializes the speech engine, or returns nil when speech
// is disabled.
func newTranscriber(cfg config.SpeechConfig) (speech.Transcriber, error) {
	if !cfg.Enabled {
		slog.Info("speech recognition disabled")
		return nil, nil
	}
	switch cfg.Backend {
	case "whisper", "":
		t, err := whisper.New(cfg.Whisper)
		if err != nil {
			return nil, err
		}
		slog.Info("using Whisper speech backend", "endpoint", cfg.Whisper.Endpoint, "type", cfg.Whisper.Type)
		return t, nil
	default:
		return nil, fmt.Errorf("unknown speech backend %q", cfg.Backend)
	}
}

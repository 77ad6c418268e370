// Package conversation defines the interface for the LLM chat backends that
// answer queries the command engine does not handle.
//
// A Proxy streams its answer as a finite sequence of Fragments. A safety
// block or upstream error ends the sequence with a terminal Fragment instead
// of an error return, because by the time it happens the transport has
// already committed its response headers. Zenith ships with three backends:
// Gemini, OpenAI (or any OpenAI-compatible local server) and Anthropic.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/AtharvRG/Zenith-AI/internal/message"
)

// DefaultSystemPrompt is sent with every conversation unless configured
// otherwise.
const DefaultSystemPrompt = "You are Zenith, a helpful and friendly desktop AI assistant. " +
	"Respond concisely and helpfully to the user's query based on the provided conversation history. " +
	"Do not attempt to open applications, websites, take notes, or access the clipboard yourself; " +
	"prefix commands like 'open', 'note:', 'remember:', 'search' are handled by the underlying system, " +
	"just process the user's text request."

// DefaultHistoryTurns is the history window used when none is configured.
const DefaultHistoryTurns = 8

// Proxy is the interface for conversation backends.
type Proxy interface {
	// Name returns the backend identifier (e.g., "gemini", "openai").
	Name() string

	// Stream sends prompt after the given history and yields the answer in
	// order. The sequence ends early when ctx is cancelled.
	Stream(ctx context.Context, history []Turn, prompt string) iter.Seq[Fragment]

	// Describe answers prompt about a single image. A safety block is
	// returned as a *BlockedError.
	Describe(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Role is the author of a Turn as the backends see it.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one history entry after windowing.
type Turn struct {
	Role Role
	Text string
}

// Window keeps the last n entries of history, maps "user" senders to
// RoleUser and everything else to RoleModel, and drops blank entries.
// Blank entries still count toward n.
func Window(history []message.Turn, n int) []Turn {
	if n <= 0 {
		n = DefaultHistoryTurns
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}

	out := make([]Turn, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		role := RoleModel
		if t.Sender == "user" {
			role = RoleUser
		}
		out = append(out, Turn{Role: role, Text: t.Content})
	}
	return out
}

// ClipboardPrompt wraps clipboard text in the analysis request.
func ClipboardPrompt(text string) string {
	return fmt.Sprintf("Analyze the following text from the clipboard:\n\n'''\n%s\n'''\n\n"+
		"What is this about? Summarize it or explain any key points.", text)
}

// ImagePrompt prefixes an image question with the system prompt, since
// single-shot image calls carry no conversation.
func ImagePrompt(systemPrompt, query string) string {
	if strings.TrimSpace(query) == "" {
		query = message.DefaultImageQuery
	}
	return fmt.Sprintf("%s\n\nUser: %s", systemPrompt, query)
}

// Fragment is one piece of a streamed answer. At most the last fragment of
// a sequence has Blocked set or a non-nil Err.
type Fragment struct {
	Text    string
	Blocked bool
	Reason  string
	Err     error
}

// Terminal reports whether f ends the stream abnormally.
func (f Fragment) Terminal() bool { return f.Blocked || f.Err != nil }

// Line renders f as one line of the plain-text stream sent to the frontend.
func (f Fragment) Line() string {
	switch {
	case f.Blocked:
		return fmt.Sprintf("ERROR: Content blocked by safety filter (%s)\n", f.Reason)
	case f.Err != nil:
		return fmt.Sprintf("ERROR: An error occurred while contacting the AI: %v\n", f.Err)
	default:
		return f.Text + "\n"
	}
}

// Text returns a plain text fragment.
func Text(s string) Fragment { return Fragment{Text: s} }

// Blocked returns the terminal fragment for a safety block.
func Blocked(reason string) Fragment { return Fragment{Blocked: true, Reason: reason} }

// Failure returns the terminal fragment for an upstream error.
func Failure(err error) Fragment { return Fragment{Err: err} }

// BlockedError reports a non-streamed answer withheld by a safety filter.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "content blocked by safety filter: " + e.Reason
}

// ErrUnavailable is returned when no conversation backend is configured.
var ErrUnavailable = errors.New("AI model unavailable")

// Collect drains seq into a single string. It stops at the first terminal
// fragment and returns it as an error.
func Collect(seq iter.Seq[Fragment]) (string, error) {
	var sb strings.Builder
	for f := range seq {
		switch {
		case f.Blocked:
			return sb.String(), &BlockedError{Reason: f.Reason}
		case f.Err != nil:
			return sb.String(), f.Err
		}
		sb.WriteString(f.Text)
	}
	return sb.String(), nil
}

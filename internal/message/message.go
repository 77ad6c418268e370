// Package message defines the request and response shapes exchanged with the
// assistant frontend, and the Outcome produced by command dispatch.
package message

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Turn is one entry of the chat history kept by the frontend.
type Turn struct {
	// Sender is "user" for the person typing; anything else is the assistant.
	Sender string `json:"sender"`

	// Content is the plain text of the turn.
	Content string `json:"content"`
}

// AskRequest is the body of POST /ask_stream.
type AskRequest struct {
	Query   string `json:"query"`
	History []Turn `json:"history,omitempty"`
}

// TeachRequest is the body of POST /add_app.
type TeachRequest struct {
	AppName string `json:"app_name"`
	AppPath string `json:"app_path"`
}

// ClipboardRequest is the body of POST /process_clipboard.
type ClipboardRequest struct {
	Text    string `json:"text"`
	History []Turn `json:"history,omitempty"`
}

// ImageRequest is the body of POST /analyze_image.
type ImageRequest struct {
	// Query is the question about the image. Defaults to DefaultImageQuery.
	Query string `json:"query,omitempty"`

	// ImageData is a data URI ("data:image/png;base64,...").
	ImageData string `json:"image_data"`
}

// DefaultImageQuery is used when an ImageRequest carries no question.
const DefaultImageQuery = "Describe this image."

// Response status values.
const (
	StatusHandled     = "handled"
	StatusSuccess     = "success"
	StatusAppNotFound = "app_not_found"
)

// StatusResponse reports a command the backend carried out itself.
type StatusResponse struct {
	Status   string `json:"status"`
	Response string `json:"response"`
}

// AppNotFoundResponse asks the frontend to prompt for an application path.
type AppNotFoundResponse struct {
	Status    string `json:"status"`
	AppName   string `json:"app_name"`
	ErrorHint string `json:"error_hint,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AnalysisResponse carries a complete, non-streamed model answer.
type AnalysisResponse struct {
	Response string `json:"response"`
}

// TranscriptResponse carries the text recognized from uploaded audio.
type TranscriptResponse struct {
	Transcript string `json:"transcript"`
}

// PingResponse reports liveness and which optional components are usable.
type PingResponse struct {
	Status     string          `json:"status"`
	Version    string          `json:"version,omitempty"`
	Components map[string]bool `json:"components,omitempty"`
}

// OutcomeKind distinguishes the three dispatch results.
type OutcomeKind int

const (
	// Handled means the command ran and Message describes what happened.
	Handled OutcomeKind = iota
	// NeedsInput means the frontend must ask the user for AppName's path.
	NeedsInput
	// Failed means the command could not run; Status is the HTTP code.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Handled:
		return "handled"
	case NeedsInput:
		return "needs_input"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of dispatching one command. Build it with
// HandledOutcome, NeedsInputOutcome or FailedOutcome.
type Outcome struct {
	Kind OutcomeKind

	// Label is the "status" value of a Handled reply ("handled" or "success").
	Label   string
	Message string

	AppName string
	Hint    string

	Reason  string
	Details string
	Status  int
}

// HandledOutcome reports a command that ran.
func HandledOutcome(msg string) Outcome {
	return Outcome{Kind: Handled, Label: StatusHandled, Message: msg, Status: http.StatusOK}
}

// SuccessOutcome is a Handled outcome labelled "success", used by teach.
func SuccessOutcome(msg string) Outcome {
	return Outcome{Kind: Handled, Label: StatusSuccess, Message: msg, Status: http.StatusOK}
}

// NeedsInputOutcome asks the user for the path of name. hint may be empty.
func NeedsInputOutcome(name, hint string) Outcome {
	return Outcome{Kind: NeedsInput, AppName: name, Hint: hint, Status: http.StatusOK}
}

// FailedOutcome reports a failure with an HTTP status code.
func FailedOutcome(status int, reason, details string) Outcome {
	return Outcome{Kind: Failed, Reason: reason, Details: details, Status: status}
}

// Summary is the one-line text stored in history and shown by the CLI.
func (o Outcome) Summary() string {
	switch o.Kind {
	case Handled:
		return o.Message
	case NeedsInput:
		if o.Hint != "" {
			return o.Hint
		}
		return "unknown application " + o.AppName
	default:
		return o.Reason
	}
}

// Body returns the JSON reply for o.
func (o Outcome) Body() any {
	switch o.Kind {
	case Handled:
		return StatusResponse{Status: o.Label, Response: o.Message}
	case NeedsInput:
		return AppNotFoundResponse{Status: StatusAppNotFound, AppName: o.AppName, ErrorHint: o.Hint}
	default:
		return ErrorResponse{Error: o.Reason, Details: o.Details}
	}
}

// ErrInvalidImage reports image data that is not a base64 data URI.
var ErrInvalidImage = errors.New("invalid image data format")

// DecodeDataURI splits a "data:<mime>;base64,<payload>" string into its
// media type and decoded bytes. A bare base64 payload is accepted and
// reported as image/png.
func DecodeDataURI(uri string) (mimeType string, data []byte, err error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		header, payload = "", uri
	}

	mimeType = "image/png"
	if header != "" {
		meta, ok := strings.CutPrefix(header, "data:")
		if !ok {
			return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidImage)
		}
		meta, isBase64 := strings.CutSuffix(meta, ";base64")
		if !isBase64 {
			return "", nil, fmt.Errorf("%w: payload is not base64", ErrInvalidImage)
		}
		if meta != "" {
			mimeType = meta
		}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, mimeType)
	}

	data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	return mimeType, data, nil
}

// Package speech defines the interface for speech-to-text backends used by
// the /listen route.
package speech

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when the audio contained nothing recognisable.
var ErrNoSpeech = errors.New("could not understand audio")

// Transcriber converts recorded audio to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "whisper").
	Name() string

	// Transcribe converts audio bytes to text. contentType is the MIME type
	// of the upload and may be empty.
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

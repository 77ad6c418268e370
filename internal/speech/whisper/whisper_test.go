package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvRG/Zenith-AI/internal/config"
	"github.com/AtharvRG/Zenith-AI/internal/speech"
)

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New(config.WhisperConfig{})
	assert.Error(t, err)
}

func TestTranscribe_OpenAIFlavor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "RIFFdata", string(data))
		assert.Equal(t, "audio.webm", hdr.Filename)

		_, _ = io.WriteString(w, `{"text":"  open notepad "}`)
	}))
	defer srv.Close()

	tr, err := New(config.WhisperConfig{Endpoint: srv.URL, APIKey: "sk-test", Model: "whisper-1", Language: "en"})
	require.NoError(t, err)
	text, err := tr.Transcribe(context.Background(), []byte("RIFFdata"), "audio/webm;codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "open notepad", text)
}

func TestTranscribe_ASRFlavor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "transcribe", q.Get("task"))
		assert.Equal(t, "fr", q.Get("language"))
		assert.Equal(t, "true", q.Get("vad_filter"))
		assert.Empty(t, r.Header.Get("Authorization"))

		_, _, err := r.FormFile("audio_file")
		require.NoError(t, err)
		_, _ = io.WriteString(w, `{"text":"bonjour","language":"fr"}`)
	}))
	defer srv.Close()

	tr, err := New(config.WhisperConfig{Endpoint: srv.URL + "/asr", Type: "asr", Language: "fr", VADFilter: true})
	require.NoError(t, err)
	text, err := tr.Transcribe(context.Background(), []byte("x"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", text)
}

func TestTranscribe_NoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"   "}`)
	}))
	defer srv.Close()

	tr, _ := New(config.WhisperConfig{Endpoint: srv.URL})
	_, err := tr.Transcribe(context.Background(), []byte("x"), "")
	assert.ErrorIs(t, err, speech.ErrNoSpeech)
}

func TestTranscribe_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr, _ := New(config.WhisperConfig{Endpoint: srv.URL})
	_, err := tr.Transcribe(context.Background(), []byte("x"), "audio/wav")
	assert.ErrorContains(t, err, "status 503")

	_, err = tr.Transcribe(context.Background(), nil, "audio/wav")
	assert.Error(t, err)
}

func TestExtFromContentType(t *testing.T) {
	cases := map[string]string{
		"audio/wav":  ".wav",
		"audio/ogg":  ".ogg",
		"audio/mpeg": ".mp3",
		"audio/flac": ".flac",
		"audio/webm": ".webm",
		"":           ".wav",
	}
	for ct, want := range cases {
		assert.Equal(t, want, extFromContentType(ct), ct)
	}
}

// Package http implements the HTTP transport the desktop frontend talks to.
//
// Commands are answered with JSON. Queries the command engine does not
// handle, and clipboard analysis, are streamed from the conversation backend
// as newline-delimited plain text; a failure after the headers are sent is
// reported as a line beginning "ERROR: ".
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/AtharvRG/Zenith-AI/internal/command"
	"github.com/AtharvRG/Zenith-AI/internal/conversation"
	"github.com/AtharvRG/Zenith-AI/internal/history"
	"github.com/AtharvRG/Zenith-AI/internal/message"
	"github.com/AtharvRG/Zenith-AI/internal/speech"
)

// Engine classifies and executes commands. *dispatch.Dispatcher satisfies it.
type Engine interface {
	Handle(ctx context.Context, query string) (command.Command, message.Outcome, bool)
	Teach(ctx context.Context, name, path string) message.Outcome
}

// HistoryReader lists recently dispatched commands.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options configure the transport.
type Options struct {
	Addr         string
	CORSOrigins  []string
	Swagger      bool
	MaxBodyBytes int64
	HistoryTurns int
	Version      string
}

// Deps are the collaborators behind the routes. Only Engine is required; a
// nil Proxy, Transcriber or History makes the matching routes answer 503.
type Deps struct {
	Engine      Engine
	Proxy       conversation.Proxy
	Transcriber speech.Transcriber
	History     HistoryReader
}

// Transport implements transport.Transport over HTTP.
type Transport struct {
	opts    Options
	deps    Deps
	handler http.Handler
	server  *http.Server
}

// New creates the HTTP transport and builds its routes.
func New(opts Options, deps Deps) *Transport {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 25 << 20
	}
	t := &Transport{opts: opts, deps: deps}
	t.handler = t.routes()
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the full middleware-wrapped handler.
func (t *Transport) Handler() http.Handler { return t.handler }

func (t *Transport) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", t.handleIndex)
	mux.HandleFunc("GET /ping", t.handlePing)
	mux.HandleFunc("POST /ask_stream", t.handleAsk)
	mux.HandleFunc("POST /add_app", t.handleTeach)
	mux.HandleFunc("POST /process_clipboard", t.handleClipboard)
	mux.HandleFunc("POST /analyze_image", t.handleImage)
	mux.HandleFunc("POST /listen", t.handleListen)
	mux.HandleFunc("GET /history", t.handleHistory)

	if t.opts.Swagger {
		mux.Handle("GET /swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   t.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})
	return requestID(recoverer(c.Handler(mux)))
}

// Listen starts the HTTP server. It blocks until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", t.opts.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	t.server = &http.Server{
		Handler:           t.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// handleIndex returns the banner.
//
// @Summary     Backend banner
// @Tags        status
// @Produce     plain
// @Success     200  {string}  string  "Zenith Assistant Backend <version>"
// @Router      / [get]
func (t *Transport) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Zenith Assistant Backend "+t.opts.Version)
}

// handlePing reports liveness and optional component availability.
//
// @Summary     Liveness check
// @Tags        status
// @Produce     json
// @Success     200  {object}  message.PingResponse
// @Router      /ping [get]
func (t *Transport) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, message.PingResponse{
		Status:     "ok",
		Version:    t.opts.Version,
		Components: t.Components(),
	})
}

// Components reports which optional collaborators are configured.
func (t *Transport) Components() map[string]bool {
	return map[string]bool{
		"conversation": t.deps.Proxy != nil,
		"speech":       t.deps.Transcriber != nil,
		"history":      t.deps.History != nil,
	}
}

// handleAsk runs a query through the command engine, or streams the
// conversation backend's answer when it is not a command.
//
// @Summary     Ask the assistant
// @Description Commands (note:, open, search, ...) are executed locally and answered with JSON.
// @Description Anything else is forwarded to the conversation backend and streamed back as
// @Description newline-delimited text; a mid-stream failure is a line starting with "ERROR: ".
// @Tags        assistant
// @Accept      json
// @Produce     json
// @Produce     plain
// @Param       request  body      message.AskRequest  true  "Query and recent chat history"
// @Success     200  {object}  message.StatusResponse  "Command handled; status app_not_found (message.AppNotFoundResponse) asks for a path"
// @Failure     400  {object}  message.ErrorResponse
// @Failure     403  {object}  message.ErrorResponse
// @Failure     500  {object}  message.ErrorResponse
// @Failure     503  {object}  message.ErrorResponse  "Conversation backend unavailable"
// @Router      /ask_stream [post]
func (t *Transport) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req message.AskRequest
	if !t.decode(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "Empty query received.", "")
		return
	}

	logger := loggerFrom(r.Context())
	logger.Info("ask", "query", preview(query), "history", len(req.History))

	_, out, forward := t.deps.Engine.Handle(r.Context(), query)
	if !forward {
		writeJSON(w, out.Status, out.Body())
		return
	}

	if t.deps.Proxy == nil {
		logger.Error("conversation backend not configured, cannot answer query")
		writeError(w, http.StatusServiceUnavailable, conversation.ErrUnavailable.Error(), "")
		return
	}
	logger.Info("forwarding query to conversation backend", "backend", t.deps.Proxy.Name())
	turns := conversation.Window(req.History, t.opts.HistoryTurns)
	t.stream(w, r, t.deps.Proxy.Stream(r.Context(), turns, query))
}

// handleTeach saves an application path.
//
// @Summary     Teach an application path
// @Tags        assistant
// @Accept      json
// @Produce     json
// @Param       request  body      message.TeachRequest  true  "Application name and executable path"
// @Success     200  {object}  message.StatusResponse
// @Failure     400  {object}  message.ErrorResponse
// @Failure     500  {object}  message.ErrorResponse
// @Router      /add_app [post]
func (t *Transport) handleTeach(w http.ResponseWriter, r *http.Request) {
	var req message.TeachRequest
	if !t.decode(w, r, &req) {
		return
	}
	loggerFrom(r.Context()).Info("teach", "app", req.AppName, "path", req.AppPath)

	out := t.deps.Engine.Teach(r.Context(), req.AppName, req.AppPath)
	writeJSON(w, out.Status, out.Body())
}

// handleClipboard streams an analysis of clipboard text.
//
// @Summary     Analyze clipboard text
// @Tags        assistant
// @Accept      json
// @Produce     plain
// @Param       request  body      message.ClipboardRequest  true  "Clipboard text and recent chat history"
// @Success     200  {string}  string  "Newline-delimited answer"
// @Failure     400  {object}  message.ErrorResponse
// @Failure     503  {object}  message.ErrorResponse
// @Router      /process_clipboard [post]
func (t *Transport) handleClipboard(w http.ResponseWriter, r *http.Request) {
	var req message.ClipboardRequest
	if !t.decode(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Clipboard text is empty.", "")
		return
	}
	if t.deps.Proxy == nil {
		writeError(w, http.StatusServiceUnavailable, conversation.ErrUnavailable.Error(), "")
		return
	}

	loggerFrom(r.Context()).Info("processing clipboard text", "length", len(text))
	turns := conversation.Window(req.History, t.opts.HistoryTurns)
	t.stream(w, r, t.deps.Proxy.Stream(r.Context(), turns, conversation.ClipboardPrompt(text)))
}

// handleImage answers a question about one image.
//
// @Summary     Analyze an image
// @Tags        assistant
// @Accept      json
// @Produce     json
// @Param       request  body      message.ImageRequest  true  "Optional question and a base64 data URI"
// @Success     200  {object}  message.AnalysisResponse
// @Failure     400  {object}  message.ErrorResponse  "Missing or invalid image, or blocked by a safety filter"
// @Failure     500  {object}  message.ErrorResponse
// @Failure     503  {object}  message.ErrorResponse
// @Router      /analyze_image [post]
func (t *Transport) handleImage(w http.ResponseWriter, r *http.Request) {
	if t.deps.Proxy == nil {
		writeError(w, http.StatusServiceUnavailable, conversation.ErrUnavailable.Error(), "")
		return
	}
	var req message.ImageRequest
	if !t.decode(w, r, &req) {
		return
	}
	if req.ImageData == "" {
		writeError(w, http.StatusBadRequest, "No image data provided", "")
		return
	}

	logger := loggerFrom(r.Context())
	mimeType, data, err := message.DecodeDataURI(req.ImageData)
	if err != nil {
		logger.Warn("image data decoding failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid image data format", "")
		return
	}

	logger.Info("image analysis", "query", preview(req.Query), "mime", mimeType, "bytes", len(data))
	text, err := t.deps.Proxy.Describe(r.Context(), req.Query, data, mimeType)
	if err != nil {
		var blocked *conversation.BlockedError
		if errors.As(err, &blocked) {
			logger.Warn("image analysis blocked", "reason", blocked.Reason)
			writeError(w, http.StatusBadRequest, "Content blocked by safety filter", blocked.Reason)
			return
		}
		logger.Error("image analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An error occurred during image analysis", "")
		return
	}
	writeJSON(w, http.StatusOK, message.AnalysisResponse{Response: text})
}

// handleListen transcribes uploaded audio.
//
// @Summary     Transcribe speech
// @Description POST the recorded audio bytes with their Content-Type. An empty or silent
// @Description recording yields an empty transcript.
// @Tags        speech
// @Accept      audio/wav
// @Accept      audio/webm
// @Accept      audio/ogg
// @Produce     json
// @Success     200  {object}  message.TranscriptResponse
// @Failure     500  {object}  message.ErrorResponse
// @Failure     503  {object}  message.ErrorResponse
// @Router      /listen [post]
func (t *Transport) handleListen(w http.ResponseWriter, r *http.Request) {
	if t.deps.Transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "Voice recognition components unavailable", "")
		return
	}

	logger := loggerFrom(r.Context())
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, t.opts.MaxBodyBytes))
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if len(audio) == 0 {
		logger.Warn("no audio data received")
		writeJSON(w, http.StatusOK, message.TranscriptResponse{})
		return
	}

	transcript, err := t.deps.Transcriber.Transcribe(r.Context(), audio, r.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, speech.ErrNoSpeech):
		logger.Info("no speech recognised", "bytes", len(audio))
		writeJSON(w, http.StatusOK, message.TranscriptResponse{})
	case err != nil:
		logger.Error("transcription failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Speech transcription failed.", err.Error())
	default:
		logger.Info("transcription complete", "transcript", preview(transcript))
		writeJSON(w, http.StatusOK, message.TranscriptResponse{Transcript: transcript})
	}
}

// handleHistory lists recently dispatched commands, newest first.
//
// @Summary     Recent commands
// @Tags        history
// @Produce     json
// @Param       limit  query     int  false  "Maximum entries (default 20)"
// @Success     200  {array}   history.Entry
// @Failure     400  {object}  message.ErrorResponse
// @Failure     503  {object}  message.ErrorResponse
// @Router      /history [get]
func (t *Transport) handleHistory(w http.ResponseWriter, r *http.Request) {
	if t.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "Command history is disabled", "")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "")
			return
		}
		limit = n
	}

	entries, err := t.deps.History.Recent(r.Context(), limit)
	if err != nil {
		loggerFrom(r.Context()).Error("reading history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not read command history.", "")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// stream writes each fragment as one line and flushes it. It stops after a
// terminal fragment or when the client goes away.
func (t *Transport) stream(w http.ResponseWriter, r *http.Request, seq iter.Seq[conversation.Fragment]) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	logger := loggerFrom(r.Context())
	chunks := 0
	for frag := range seq {
		if _, err := io.WriteString(w, frag.Line()); err != nil {
			logger.Debug("client went away mid-stream", "error", err)
			return
		}
		_ = rc.Flush()
		chunks++
		if frag.Terminal() {
			logger.Warn("stream ended early", "line", strings.TrimSpace(frag.Line()))
			return
		}
	}
	logger.Debug("stream complete", "chunks", chunks)
}

func (t *Transport) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, t.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeBodyError(w, err)
		return false
	}
	return true
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large.", "")
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body.", err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, details string) {
	writeJSON(w, status, message.ErrorResponse{Error: reason, Details: details})
}

func preview(s string) string {
	const limit = 100
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

type loggerKey struct{}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// requestID tags every request with an id, echoed in X-Request-ID and
// attached to the request-scoped logger.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		logger := slog.With("request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger)))
	})
}

// recoverer turns a handler panic into a logged 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				loggerFrom(r.Context()).Error("handler panic", "panic", rec)
				writeError(w, http.StatusInternalServerError, "Internal server error.", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

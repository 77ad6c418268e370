// Package dispatch implements the command engine.
//
// The dispatcher classifies a query, executes the resulting command (write a
// note, launch a process, open a browser URL) and turns the result into a
// message.Outcome. It is the only writer of the applications registry: teach
// inserts validated entries and self-heal removes paths that no longer exist.
// Unclassified queries are not executed; the caller forwards them to the
// conversation backend.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/AtharvRG/Zenith-AI/internal/command"
	"github.com/AtharvRG/Zenith-AI/internal/history"
	"github.com/AtharvRG/Zenith-AI/internal/launcher"
	"github.com/AtharvRG/Zenith-AI/internal/message"
	"github.com/AtharvRG/Zenith-AI/internal/registry"
)

// Launcher starts an executable without waiting for it.
type Launcher interface {
	Launch(path string) error
}

// Browser opens a URL in the default browser.
type Browser interface {
	Open(url string) error
}

// NoteWriter appends one note.
type NoteWriter interface {
	Append(text string) error
}

// Recorder stores dispatched commands. Failures are logged and ignored.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// StaleHint is the error_hint sent after a saved application path was
// found missing and removed.
const StaleHint = "The saved path seems incorrect. Please provide it again."

// Deps are the collaborators of a Dispatcher. Recorder may be nil.
type Deps struct {
	Apps     *registry.Store
	Websites *registry.Store
	Notes    NoteWriter
	Launcher Launcher
	Browser  Browser
	Recorder Recorder
}

// Dispatcher is the command engine.
type Dispatcher struct {
	classifier *command.Classifier
	apps       *registry.Store
	websites   *registry.Store
	notes      NoteWriter
	launcher   Launcher
	browser    Browser
	recorder   Recorder
	goos       string
}

// New creates a Dispatcher. Apps and Websites must be non-nil.
func New(d Deps) *Dispatcher {
	return &Dispatcher{
		classifier: command.NewClassifier(registry.Catalog{Apps: d.Apps, Websites: d.Websites}),
		apps:       d.Apps,
		websites:   d.Websites,
		notes:      d.Notes,
		launcher:   d.Launcher,
		browser:    d.Browser,
		recorder:   d.Recorder,
		goos:       runtime.GOOS,
	}
}

// Classify runs the classifier against the current registries.
func (d *Dispatcher) Classify(query string) (command.Command, error) {
	return d.classifier.Classify(query)
}

// Handle classifies query and, unless it is Unclassified, dispatches it.
// forward reports that the query belongs to the conversation backend; out is
// meaningless in that case.
func (d *Dispatcher) Handle(ctx context.Context, query string) (cmd command.Command, out message.Outcome, forward bool) {
	start := time.Now()
	logger := slog.With("query", preview(query))

	cmd, err := d.classifier.Classify(query)
	if err != nil {
		var verr *command.ValidationError
		if errors.As(err, &verr) {
			out = message.FailedOutcome(http.StatusBadRequest, verr.Message, "")
		} else {
			out = message.FailedOutcome(http.StatusInternalServerError, "Error parsing command.", err.Error())
		}
		logger.Info("query rejected", "reason", out.Reason)
		d.record(ctx, query, "invalid", out)
		return nil, out, false
	}

	if _, ok := cmd.(command.Unclassified); ok {
		logger.Debug("query not a command, forwarding")
		d.recordForward(ctx, query)
		return cmd, message.Outcome{}, true
	}

	logger.Info("command classified", "kind", cmd.Kind(), "command", command.Describe(cmd))
	out = d.Dispatch(ctx, cmd)
	logger.Info("dispatch complete", "outcome", out.Kind, "status", out.Status, "duration", time.Since(start))
	d.record(ctx, query, string(cmd.Kind()), out)
	return cmd, out, false
}

// Dispatch executes cmd. Unclassified yields a Failed outcome because it has
// nothing to execute.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) message.Outcome {
	switch c := cmd.(type) {
	case command.Note:
		return d.note(c)
	case command.SiteSearch:
		return d.siteSearch(c)
	case command.GenericSearch:
		return d.genericSearch(c)
	case command.OpenKnownSite:
		return d.openKnownSite(c)
	case command.OpenApp:
		return d.openApp(ctx, c)
	case command.OpenURL:
		return d.openURL(c)
	case command.UnknownApp:
		return message.NeedsInputOutcome(c.Name, "")
	default:
		return message.FailedOutcome(http.StatusInternalServerError, "Nothing to dispatch.", fmt.Sprintf("%T", cmd))
	}
}

func (d *Dispatcher) note(c command.Note) message.Outcome {
	if err := d.notes.Append(c.Text); err != nil {
		slog.Error("saving note failed", "error", err)
		return message.FailedOutcome(http.StatusInternalServerError, "Could not save note. Please check file permissions.", "")
	}
	return message.HandledOutcome("Okay, I've noted that down.")
}

func (d *Dispatcher) siteSearch(c command.SiteSearch) message.Outcome {
	site, ok := command.LookupSite(c.Site)
	if !ok {
		return message.FailedOutcome(http.StatusInternalServerError, "Error searching "+c.Site, "unknown search site")
	}
	if err := d.browser.Open(site.SearchURL(c.Terms)); err != nil {
		slog.Error("site search failed", "site", c.Site, "error", err)
		return message.FailedOutcome(http.StatusInternalServerError, "Error searching "+c.Site, "")
	}
	return message.HandledOutcome(fmt.Sprintf("Searching %s for '%s'...", c.Site, c.Terms))
}

func (d *Dispatcher) genericSearch(c command.GenericSearch) message.Outcome {
	site, _ := command.LookupSite(command.DefaultSearchSite)
	if err := d.browser.Open(site.SearchURL(c.Terms)); err != nil {
		slog.Error("web search failed", "error", err)
		return message.FailedOutcome(http.StatusInternalServerError, "Error performing web search", "")
	}
	return message.HandledOutcome(fmt.Sprintf("Searching the web for '%s'...", c.Terms))
}

func (d *Dispatcher) openKnownSite(c command.OpenKnownSite) message.Outcome {
	url, ok := d.websites.Lookup(c.Site)
	if !ok {
		// Removed from the websites file after classification.
		slog.Warn("website vanished before dispatch", "site", c.Site)
		return message.FailedOutcome(http.StatusInternalServerError, "Unknown website "+c.Site, "")
	}
	if err := d.browser.Open(command.WithScheme(url)); err != nil {
		slog.Error("opening website failed", "site", c.Site, "error", err)
		return message.FailedOutcome(http.StatusInternalServerError, "Error opening website", "")
	}
	return message.HandledOutcome(fmt.Sprintf("Opening %s.", c.Label))
}

func (d *Dispatcher) openURL(c command.OpenURL) message.Outcome {
	if err := d.browser.Open(command.WithScheme(c.URL)); err != nil {
		slog.Error("opening url failed", "url", c.URL, "error", err)
		return message.FailedOutcome(http.StatusInternalServerError, "Error opening URL", "")
	}
	return message.HandledOutcome(fmt.Sprintf("Opening %s.", c.URL))
}

func (d *Dispatcher) openApp(ctx context.Context, c command.OpenApp) message.Outcome {
	path, ok := d.apps.Lookup(c.Name)
	if !ok {
		return message.NeedsInputOutcome(c.Name, "")
	}

	err := d.launcher.Launch(path)
	switch {
	case err == nil:
		return message.HandledOutcome(fmt.Sprintf("Launching %s.", c.Name))
	case errors.Is(err, launcher.ErrNotFound):
		d.selfHeal(ctx, c.Name, path)
		return message.NeedsInputOutcome(c.Name, StaleHint)
	case errors.Is(err, launcher.ErrPermission):
		slog.Error("launch permission denied", "app", c.Name, "path", path, "error", err)
		return message.FailedOutcome(http.StatusForbidden, fmt.Sprintf("Permission denied to launch %s.", c.Name), "")
	default:
		slog.Error("launch failed", "app", c.Name, "path", path, "error", err)
		return message.FailedOutcome(http.StatusInternalServerError, fmt.Sprintf("Sorry, couldn't launch %s.", c.Name), "")
	}
}

// selfHeal removes name from the apps registry if it still points at the
// stale path. A concurrent teach that already replaced the path wins.
func (d *Dispatcher) selfHeal(ctx context.Context, name, stalePath string) {
	key := registry.Normalize(name)
	err := d.apps.Update(func(entries map[string]string) error {
		if entries[key] != stalePath {
			return errAlreadyChanged
		}
		delete(entries, key)
		return nil
	})
	switch {
	case err == nil:
		slog.InfoContext(ctx, "removed stale application path", "app", key, "path", stalePath)
	case errors.Is(err, errAlreadyChanged):
		slog.InfoContext(ctx, "stale application path already replaced", "app", key)
	default:
		slog.ErrorContext(ctx, "removing stale application path failed", "app", key, "error", err)
	}
}

var errAlreadyChanged = errors.New("registry entry changed concurrently")

func (d *Dispatcher) record(ctx context.Context, query, kind string, out message.Outcome) {
	status := out.Kind.String()
	if out.Kind == message.NeedsInput {
		status = message.StatusAppNotFound
	}
	d.save(ctx, history.Entry{
		Query:      query,
		Kind:       kind,
		Status:     status,
		Message:    out.Summary(),
		HTTPStatus: out.Status,
	})
}

func (d *Dispatcher) recordForward(ctx context.Context, query string) {
	d.save(ctx, history.Entry{
		Query:      query,
		Kind:       string(command.KindUnclassified),
		Status:     "forwarded",
		HTTPStatus: http.StatusOK,
	})
}

func (d *Dispatcher) save(ctx context.Context, e history.Entry) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, e); err != nil {
		slog.Warn("recording history failed", "error", err)
	}
}

func preview(s string) string {
	const limit = 100
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

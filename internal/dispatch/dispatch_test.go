package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvRG/Zenith-AI/internal/command"
	"github.com/AtharvRG/Zenith-AI/internal/history"
	"github.com/AtharvRG/Zenith-AI/internal/launcher"
	"github.com/AtharvRG/Zenith-AI/internal/message"
	"github.com/AtharvRG/Zenith-AI/internal/registry"
)

type fakeLauncher struct {
	mu       sync.Mutex
	errs     map[string]error
	launched []string
}

func (f *fakeLauncher) Launch(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[path]; err != nil {
		return err
	}
	f.launched = append(f.launched, path)
	return nil
}

type fakeBrowser struct {
	err    error
	opened []string
}

func (f *fakeBrowser) Open(url string) error {
	if f.err != nil {
		return f.err
	}
	f.opened = append(f.opened, url)
	return nil
}

type fakeNotes struct {
	err   error
	notes []string
}

func (f *fakeNotes) Append(text string) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, text)
	return nil
}

type fakeRecorder struct {
	err     error
	entries []history.Entry
}

func (f *fakeRecorder) Record(_ context.Context, e history.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

type fixture struct {
	d        *Dispatcher
	apps     *registry.Store
	websites *registry.Store
	launcher *fakeLauncher
	browser  *fakeBrowser
	notes    *fakeNotes
	recorder *fakeRecorder
	dir      string
}

func newFixture(t *testing.T, apps map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()

	appStore, err := registry.Open("apps", filepath.Join(dir, "known_apps.json"), apps)
	require.NoError(t, err)
	siteStore, err := registry.Open("websites", filepath.Join(dir, "known_websites.json"), command.HomePages())
	require.NoError(t, err)

	f := &fixture{
		apps:     appStore,
		websites: siteStore,
		launcher: &fakeLauncher{errs: map[string]error{}},
		browser:  &fakeBrowser{},
		notes:    &fakeNotes{},
		recorder: &fakeRecorder{},
		dir:      dir,
	}
	f.d = New(Deps{
		Apps:     appStore,
		Websites: siteStore,
		Notes:    f.notes,
		Launcher: f.launcher,
		Browser:  f.browser,
		Recorder: f.recorder,
	})
	return f
}

func (f *fixture) handle(t *testing.T, query string) message.Outcome {
	t.Helper()
	_, out, forward := f.d.Handle(context.Background(), query)
	require.False(t, forward, query)
	return out
}

func readJSON(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := map[string]string{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHandle_Note(t *testing.T) {
	f := newFixture(t, nil)
	out := f.handle(t, "remember: call mom")
	assert.Equal(t, message.HandledOutcome("Okay, I've noted that down."), out)
	assert.Equal(t, []string{"call mom"}, f.notes.notes)
}

func TestHandle_NoteWriteFails(t *testing.T) {
	f := newFixture(t, nil)
	f.notes.err = errors.New("read-only file system")
	out := f.handle(t, "note: x")
	assert.Equal(t, message.Failed, out.Kind)
	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Equal(t, "Could not save note. Please check file permissions.", out.Reason)
}

func TestHandle_EmptyNoteIsBadRequest(t *testing.T) {
	f := newFixture(t, nil)
	out := f.handle(t, "note:   ")
	assert.Equal(t, message.FailedOutcome(http.StatusBadRequest, "Note cannot be empty.", ""), out)
	assert.Empty(t, f.notes.notes)
}

func TestHandle_SiteSearchEscapesOnce(t *testing.T) {
	f := newFixture(t, nil)
	out := f.handle(t, "search youtube for lofi beats")
	assert.Equal(t, "Searching youtube for 'lofi beats'...", out.Message)
	assert.Equal(t, []string{"https://www.youtube.com/results?search_query=lofi+beats"}, f.browser.opened)
}

func TestHandle_GoogleBarePrefix(t *testing.T) {
	f := newFixture(t, nil)
	out := f.handle(t, "google cats & dogs")
	assert.Equal(t, "Searching google for 'cats & dogs'...", out.Message)
	assert.Equal(t, []string{"https://www.google.com/search?q=cats+%26+dogs"}, f.browser.opened)
}

func TestHandle_SiteSearchBrowserFails(t *testing.T) {
	f := newFixture(t, nil)
	f.browser.err = errors.New("no display")
	out := f.handle(t, "search github for cobra")
	assert.Equal(t, message.FailedOutcome(http.StatusInternalServerError, "Error searching github", ""), out)
}

func TestHandle_GenericSearch(t *testing.T) {
	f := newFixture(t, nil)
	out := f.handle(t, "search golang iterators")
	assert.Equal(t, "Searching the web for 'golang iterators'...", out.Message)
	assert.Equal(t, []string{"https://www.google.com/search?q=golang+iterators"}, f.browser.opened)

	f.browser.err = errors.New("boom")
	out = f.handle(t, "find x")
	assert.Equal(t, "Error performing web search", out.Reason)
}

func TestHandle_OpenURLAddsScheme(t *testing.T) {
	f := newFixture(t, nil)
	out := f.handle(t, "open example.com")
	assert.Equal(t, "Opening example.com.", out.Message)
	assert.Equal(t, []string{"https://example.com"}, f.browser.opened)

	f.handle(t, "open http://localhost:8080")
	assert.Equal(t, "http://localhost:8080", f.browser.opened[1])
}

func TestHandle_OpenURLBrowserFails(t *testing.T) {
	f := newFixture(t, nil)
	f.browser.err = errors.New("boom")
	assert.Equal(t, "Error opening URL", f.handle(t, "open example.com").Reason)
}

func TestHandle_OpenKnownSiteIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	before := f.websites.Entries()
	fileBefore, err := os.ReadFile(f.websites.Path())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		out := f.handle(t, "open youtube")
		assert.Equal(t, message.HandledOutcome("Opening youtube."), out)
	}

	assert.Equal(t, []string{"https://www.youtube.com", "https://www.youtube.com"}, f.browser.opened)
	assert.Equal(t, before, f.websites.Entries())
	fileAfter, err := os.ReadFile(f.websites.Path())
	require.NoError(t, err)
	assert.Equal(t, fileBefore, fileAfter)
}

func TestDispatch_OpenKnownSiteVanished(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.websites.Update(func(entries map[string]string) error {
		delete(entries, "github")
		return nil
	}))

	out := f.d.Dispatch(context.Background(), command.OpenKnownSite{Site: "github", Label: "GitHub"})
	assert.Equal(t, message.Failed, out.Kind)
	assert.Equal(t, http.StatusInternalServerError, out.Status)
	assert.Empty(t, f.browser.opened)
}

func TestHandle_OpenKnownSiteWithoutScheme(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.websites.Update(func(entries map[string]string) error {
		entries["Intranet"] = "intranet.example.org"
		return nil
	}))

	out := f.handle(t, "open Intranet")
	assert.Equal(t, "Opening Intranet.", out.Message)
	assert.Equal(t, []string{"https://intranet.example.org"}, f.browser.opened)
}

func TestHandle_OpenApp(t *testing.T) {
	f := newFixture(t, map[string]string{"spotify": "/opt/spotify/spotify"})
	out := f.handle(t, "Open Spotify")
	assert.Equal(t, message.HandledOutcome("Launching Spotify."), out)
	assert.Equal(t, []string{"/opt/spotify/spotify"}, f.launcher.launched)
}

func TestHandle_OpenAppStalePathSelfHeals(t *testing.T) {
	f := newFixture(t, map[string]string{"spotify": "/gone/spotify", "vlc": "/usr/bin/vlc"})
	f.launcher.errs["/gone/spotify"] = fmt.Errorf("launching: %w", launcher.ErrNotFound)

	out := f.handle(t, "open spotify")
	assert.Equal(t, message.NeedsInputOutcome("spotify", StaleHint), out)

	_, ok := f.apps.Lookup("spotify")
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"vlc": "/usr/bin/vlc"}, readJSON(t, f.apps.Path()))

	reopened, err := registry.Open("apps", f.apps.Path(), nil)
	require.NoError(t, err)
	_, ok = reopened.Lookup("spotify")
	assert.False(t, ok)

	// The entry is gone, so the next attempt asks without a hint.
	assert.Equal(t, message.NeedsInputOutcome("spotify", ""), f.handle(t, "open spotify"))
}

func TestHandle_SelfHealSkipsReplacedPath(t *testing.T) {
	f := newFixture(t, map[string]string{"spotify": "/gone/spotify"})
	f.launcher.errs["/gone/spotify"] = launcher.ErrNotFound

	// A teach landed between lookup and self-heal.
	f.d.selfHeal(context.Background(), "spotify", "/older/spotify")
	v, ok := f.apps.Lookup("spotify")
	require.True(t, ok)
	assert.Equal(t, "/gone/spotify", v)
}

func TestHandle_OpenAppPermissionDenied(t *testing.T) {
	f := newFixture(t, map[string]string{"secret": "/root/secret"})
	f.launcher.errs["/root/secret"] = fmt.Errorf("launching: %w", launcher.ErrPermission)

	out := f.handle(t, "open secret")
	assert.Equal(t, message.FailedOutcome(http.StatusForbidden, "Permission denied to launch secret.", ""), out)
	_, ok := f.apps.Lookup("secret")
	assert.True(t, ok, "permission failures must not self-heal")
}

func TestHandle_OpenAppOtherFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"broken": "/usr/bin/broken"})
	f.launcher.errs["/usr/bin/broken"] = errors.New("exec format error")

	out := f.handle(t, "open broken")
	assert.Equal(t, message.FailedOutcome(http.StatusInternalServerError, "Sorry, couldn't launch broken.", ""), out)
}

func TestDispatch_OpenAppVanished(t *testing.T) {
	f := newFixture(t, nil)
	out := f.d.Dispatch(context.Background(), command.OpenApp{Name: "ghost"})
	assert.Equal(t, message.NeedsInputOutcome("ghost", ""), out)
}

func TestHandle_UnknownApp(t *testing.T) {
	f := newFixture(t, nil)
	out := f.handle(t, "open Blender")
	assert.Equal(t, message.NeedsInputOutcome("Blender", ""), out)
	assert.Empty(t, f.launcher.launched)
	assert.Empty(t, f.browser.opened)
}

func TestHandle_UnclassifiedForwards(t *testing.T) {
	f := newFixture(t, nil)
	cmd, _, forward := f.d.Handle(context.Background(), "what is the capital of France")
	assert.True(t, forward)
	assert.Equal(t, command.Unclassified{}, cmd)
	require.Len(t, f.recorder.entries, 1)
	assert.Equal(t, "forwarded", f.recorder.entries[0].Status)
}

func TestHandle_LookUpForwards(t *testing.T) {
	f := newFixture(t, nil)
	_, _, forward := f.d.Handle(context.Background(), "look up the weather")
	assert.True(t, forward)
	assert.Empty(t, f.browser.opened)
}

func TestHandle_RecordsHistory(t *testing.T) {
	f := newFixture(t, nil)
	f.handle(t, "open Blender")
	f.handle(t, "open ")

	require.Len(t, f.recorder.entries, 2)
	assert.Equal(t, history.Entry{
		Query:      "open Blender",
		Kind:       "unknown_app",
		Status:     "app_not_found",
		Message:    "unknown application Blender",
		HTTPStatus: http.StatusOK,
	}, f.recorder.entries[0])
	assert.Equal(t, "invalid", f.recorder.entries[1].Kind)
	assert.Equal(t, http.StatusBadRequest, f.recorder.entries[1].HTTPStatus)
}

func TestHandle_RecorderFailureIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.recorder.err = errors.New("disk full")
	out := f.handle(t, "note: still saved")
	assert.Equal(t, message.Handled, out.Kind)
}

func TestHandle_NilRecorder(t *testing.T) {
	f := newFixture(t, nil)
	f.d.recorder = nil
	assert.Equal(t, message.Handled, f.handle(t, "note: fine").Kind)
}

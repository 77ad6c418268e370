package registry

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, seed map[string]string) *Store {
	t.Helper()
	s, err := Open("apps", filepath.Join(t.TempDir(), "known_apps.json"), seed)
	require.NoError(t, err)
	return s
}

func set(s *Store, key, value string) error {
	return s.Update(func(entries map[string]string) error {
		entries[key] = value
		return nil
	})
}

func readFile(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestOpen_CreatesFileWithSeed(t *testing.T) {
	s := openTestStore(t, map[string]string{"YouTube": "https://www.youtube.com"})

	assert.Equal(t, map[string]string{"youtube": "https://www.youtube.com"}, readFile(t, s.Path()))
	v, ok := s.Lookup("YOUTUBE")
	require.True(t, ok)
	assert.Equal(t, "https://www.youtube.com", v)
}

func TestOpen_SeedIgnoredWhenFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_websites.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Docs": "https://go.dev/doc"}`), 0o644))

	s, err := Open("websites", path, map[string]string{"youtube": "https://www.youtube.com"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"docs": "https://go.dev/doc"}, s.Entries())
}

func TestOpen_EmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_apps.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := Open("apps", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestOpen_InvalidJSONFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_apps.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open("apps", path, nil)
	assert.Error(t, err)
}

func TestUpdate_PersistsLowercaseAndReloads(t *testing.T) {
	s := openTestStore(t, nil)

	require.NoError(t, set(s, "Foo", "/opt/foo/bin/foo"))

	reopened, err := Open("apps", s.Path(), nil)
	require.NoError(t, err)
	v, ok := reopened.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, "/opt/foo/bin/foo", v)
}

func TestUpdate_MixedCaseNeverDuplicates(t *testing.T) {
	s := openTestStore(t, nil)

	require.NoError(t, set(s, "Foo", "/a"))
	require.NoError(t, set(s, "FOO", "/b"))
	require.NoError(t, set(s, " foo ", "/c"))

	assert.Equal(t, map[string]string{"foo": "/c"}, readFile(t, s.Path()))
	assert.Equal(t, 1, s.Len())
}

func TestUpdate_DropsBlankKeys(t *testing.T) {
	s := openTestStore(t, nil)
	require.NoError(t, set(s, "   ", "/a"))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, readFile(t, s.Path()))
}

func TestUpdate_FilePrettyPrinted(t *testing.T) {
	s := openTestStore(t, nil)
	require.NoError(t, set(s, "spotify", "/usr/bin/spotify"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"spotify\": \"/usr/bin/spotify\"\n}\n", string(data))
}

func TestUpdate_DeletePersists(t *testing.T) {
	s := openTestStore(t, map[string]string{"spotify": "/gone", "code": "/usr/bin/code"})

	require.NoError(t, s.Update(func(entries map[string]string) error {
		delete(entries, "spotify")
		return nil
	}))

	_, ok := s.Lookup("spotify")
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"code": "/usr/bin/code"}, readFile(t, s.Path()))
}

func TestUpdate_CallbackErrorLeavesStoreUntouched(t *testing.T) {
	s := openTestStore(t, map[string]string{"code": "/usr/bin/code"})
	fileBefore, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	err = s.Update(func(entries map[string]string) error {
		delete(entries, "code")
		return errors.New("rejected")
	})
	require.Error(t, err)

	_, ok := s.Lookup("code")
	assert.True(t, ok)
	fileAfter, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, fileBefore, fileAfter)
}

func TestUpdate_FailedWriteLeavesMemoryUntouched(t *testing.T) {
	s := openTestStore(t, map[string]string{"code": "/usr/bin/code"})

	// Point the store at a directory that no longer exists.
	s.path = filepath.Join(t.TempDir(), "missing", "known_apps.json")

	err := set(s, "spotify", "/usr/bin/spotify")
	require.Error(t, err)
	_, ok := s.Lookup("spotify")
	assert.False(t, ok)
}

func TestReload_KeepsEntriesOnBadFile(t *testing.T) {
	s := openTestStore(t, map[string]string{"code": "/usr/bin/code"})
	require.NoError(t, os.WriteFile(s.Path(), []byte("{broken"), 0o644))

	assert.Error(t, s.Reload())
	v, ok := s.Lookup("code")
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/code", v)
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	s := openTestStore(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, set(s, string(rune('a'+i)), "/bin/x"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
	assert.Equal(t, s.Entries(), readFile(t, s.Path()))
}

func TestCatalog(t *testing.T) {
	apps := openTestStore(t, map[string]string{"code": "/usr/bin/code"})
	sites, err := Open("websites", filepath.Join(t.TempDir(), "known_websites.json"), map[string]string{"github": "https://github.com"})
	require.NoError(t, err)

	c := Catalog{Apps: apps, Websites: sites}
	_, ok := c.App("Code")
	assert.True(t, ok)
	u, ok := c.Website("GitHub")
	assert.True(t, ok)
	assert.Equal(t, "https://github.com", u)

	var empty Catalog
	_, ok = empty.App("code")
	assert.False(t, ok)
}

func TestWatcher_ReloadsExternalEdit(t *testing.T) {
	s := openTestStore(t, map[string]string{"code": "/usr/bin/code"})

	w, err := NewWatcher(s)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"Vim": "/usr/bin/vim"}`), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := s.Lookup("vim")
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

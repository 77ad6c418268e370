package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a config whose data directory is private to the test and
// returns the config path and data directory.
func setup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, "zenith.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
data:
  dir: %q
  watch: false
conversation:
  backend: none
logging:
  level: error
`, data)), 0o644))
	return cfgPath, data
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "zenith dev\n", out)
}

func TestClassify_DryRun(t *testing.T) {
	cfgPath, data := setup(t)

	out, err := run(t, "-c", cfgPath, "classify", "search", "youtube", "for", "lofi")
	require.NoError(t, err)
	assert.Contains(t, out, "site_search")
	assert.Contains(t, out, "lofi")

	out, err = run(t, "-c", cfgPath, "classify", "open", "notepad")
	require.NoError(t, err)
	assert.Contains(t, out, "unknown_app")

	out, err = run(t, "-c", cfgPath, "classify", "note:")
	require.NoError(t, err)
	assert.Contains(t, out, "invalid:")

	_, err = os.Stat(filepath.Join(data, "notes.txt"))
	assert.NoError(t, err, "note log is created on startup")
	_, err = os.Stat(filepath.Join(data, "known_websites.json"))
	assert.NoError(t, err, "websites registry is seeded")
}

func TestClassify_RunWritesNote(t *testing.T) {
	cfgPath, data := setup(t)

	out, err := run(t, "-c", cfgPath, "classify", "--run", "note:", "buy", "milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Okay, I've noted that down.")

	raw, err := os.ReadFile(filepath.Join(data, "notes.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "] buy milk\n")

	out, err = run(t, "-c", cfgPath, "history", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "note: buy milk")
	assert.Contains(t, out, "handled")
}

func TestApps_TeachList(t *testing.T) {
	cfgPath, _ := setup(t)
	exe := filepath.Join(t.TempDir(), "Foo.exe")
	require.NoError(t, os.WriteFile(exe, []byte("bin"), 0o755))

	out, err := run(t, "-c", cfgPath, "apps", "teach", "Foo", exe)
	require.NoError(t, err)
	assert.Contains(t, out, "learned the path for 'Foo'")

	out, err = run(t, "-c", cfgPath, "apps", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "foo")
	assert.Contains(t, out, exe)

	out, err = run(t, "-c", cfgPath, "classify", "open", "FOO")
	require.NoError(t, err)
	assert.Contains(t, out, "open_app")

	_, err = run(t, "-c", cfgPath, "apps", "teach", "Bar", filepath.Dir(exe))
	assert.Error(t, err, "directories are rejected")

	out, err = run(t, "-c", cfgPath, "apps", "list")
	require.NoError(t, err)
	assert.Contains(t, out, exe)
	assert.NotContains(t, out, "bar")
}

func TestApps_OnlyListAndTeach(t *testing.T) {
	var names []string
	for _, c := range (&app{}).appsCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "teach"}, names)
}

func TestSites(t *testing.T) {
	cfgPath, _ := setup(t)

	out, err := run(t, "-c", cfgPath, "sites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "youtube")
	assert.Contains(t, out, "https://www.youtube.com")

	out, err = run(t, "-c", cfgPath, "sites", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "stack overflow")
}

func TestHistory_Empty(t *testing.T) {
	cfgPath, _ := setup(t)
	out, err := run(t, "-c", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no commands recorded yet")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	_, err = run(t, "config", "init", path)
	assert.Error(t, err)
	_, err = run(t, "config", "init", "--force", path)
	assert.NoError(t, err)
}

func TestBadConfig(t *testing.T) {
	_, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "apps", "list")
	assert.Error(t, err)
}

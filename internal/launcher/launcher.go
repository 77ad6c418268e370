// Package launcher starts desktop applications and opens URLs in the default
// browser. Both are fire-and-forget: the call returns once the child process
// has started and never waits for it to exit.
package launcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
)

// Failure kinds reported by Launch. Check with errors.Is.
var (
	ErrNotFound   = errors.New("executable not found")
	ErrPermission = errors.New("permission denied")
)

// Process launches executables as detached children.
type Process struct{}

// Launch starts the executable at path with no arguments.
func (Process) Launch(path string) error {
	cmd := exec.Command(path)
	detach(cmd)
	if err := start(cmd); err != nil {
		return classify(path, err)
	}
	slog.Debug("process launched", "path", path, "pid", cmd.Process.Pid)
	return nil
}

func classify(path string, err error) error {
	switch {
	case (errors.Is(err, fs.ErrNotExist) || errors.Is(err, exec.ErrNotFound)) && missing(path):
		return fmt.Errorf("launching %s: %w: %w", path, ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("launching %s: %w: %w", path, ErrPermission, err)
	default:
		return fmt.Errorf("launching %s: %w", path, err)
	}
}

// missing reports whether path itself is gone. exec also reports ENOENT
// when a script's interpreter is missing, which says nothing about path.
func missing(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

// start runs cmd and reaps it in the background so no zombie is left behind.
func start(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Browser opens URLs with the platform's default handler.
type Browser struct{}

// Open hands url to the desktop's default browser.
func (Browser) Open(url string) error {
	name, args := browserCommand(runtime.GOOS, url)
	if err := start(exec.Command(name, args...)); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	slog.Debug("browser opened", "url", url)
	return nil
}

func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default: // "linux", "freebsd", "openbsd", "netbsd"
		return "xdg-open", []string{url}
	}
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/AtharvRG/Zenith-AI/internal/history"
	"github.com/AtharvRG/Zenith-AI/internal/message"
	"github.com/AtharvRG/Zenith-AI/internal/registry"
)

// windowsLaunchable are the extensions Windows can start directly.
var windowsLaunchable = []string{".exe", ".bat", ".cmd", ".lnk"}

// conflictError reports a path that is already saved under another name.
type conflictError struct {
	existing string
}

func (e *conflictError) Error() string {
	return fmt.Sprintf("Path already saved as '%s'.", e.existing)
}

// Teach validates path and stores it as the executable for name, replacing
// any earlier path for the same case-insensitive name.
func (d *Dispatcher) Teach(ctx context.Context, name, path string) message.Outcome {
	name = strings.TrimSpace(name)
	path = strings.ReplaceAll(strings.TrimSpace(path), `"`, "")
	logger := slog.With("app", name, "path", path)

	if name == "" {
		return message.FailedOutcome(http.StatusBadRequest, "Application name cannot be empty", "")
	}
	if path == "" {
		return message.FailedOutcome(http.StatusBadRequest, "Application path cannot be empty", "")
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("teach rejected, path does not exist", "error", err)
		return message.FailedOutcome(http.StatusBadRequest,
			fmt.Sprintf("Path not found: '%s'. Please provide the full, correct path.", path), "")
	}
	if !info.Mode().IsRegular() {
		logger.Warn("teach rejected, path is not a file")
		return message.FailedOutcome(http.StatusBadRequest,
			fmt.Sprintf("Path is not a file: '%s'. It should point to the executable.", path), "")
	}
	if d.goos == "windows" && !hasLaunchableExt(path) {
		logger.Warn("path might not be directly executable on Windows")
	}

	key := registry.Normalize(name)
	err = d.apps.Update(func(entries map[string]string) error {
		for other, p := range entries {
			if other != key && d.samePath(p, path) {
				return &conflictError{existing: other}
			}
		}
		entries[key] = path
		return nil
	})

	var conflict *conflictError
	switch {
	case errors.As(err, &conflict):
		logger.Warn("teach rejected, path already registered", "existing", conflict.existing)
		return message.FailedOutcome(http.StatusBadRequest, conflict.Error(), "")
	case err != nil:
		logger.Error("saving application path failed", "error", err)
		return message.FailedOutcome(http.StatusInternalServerError, "Internal error saving the application path.", err.Error())
	}

	logger.Info("application path saved")
	d.save(ctx, historyForTeach(name, path))
	return message.SuccessOutcome(fmt.Sprintf("Okay, I've learned the path for '%s'. You can now ask me to open it.", name))
}

// samePath compares stored paths the way the host file system does:
// case-insensitively on Windows.
func (d *Dispatcher) samePath(a, b string) bool {
	if d.goos == "windows" {
		return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
	}
	return a == b
}

func hasLaunchableExt(path string) bool {
	return slices.Contains(windowsLaunchable, strings.ToLower(filepath.Ext(path)))
}

func historyForTeach(name, path string) history.Entry {
	return history.Entry{
		Query:      "teach " + name,
		Kind:       "teach",
		Status:     message.StatusSuccess,
		Message:    path,
		HTTPStatus: http.StatusOK,
	}
}

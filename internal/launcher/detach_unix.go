//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// detach starts the child in its own session so it outlives the backend.
func detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}

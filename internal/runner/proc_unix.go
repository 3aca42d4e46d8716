//go:build !windows

package runner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/dgerlanc/toolguard/internal/logger"
	"golang.org/x/sys/unix"
)

// The tool leads its own process group; children of npx and friends join it.
func prepareCommandTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killCommandTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid

	err := unix.Kill(-pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	logger.Debug("process group kill failed, killing tool only", "pid", pid, "error", err)

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

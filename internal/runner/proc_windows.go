//go:build windows

package runner

import (
	"os/exec"
	"strconv"
	"syscall"

	"github.com/dgerlanc/toolguard/internal/logger"
)

func prepareCommandTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func killCommandTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := strconv.Itoa(cmd.Process.Pid)
	if err := exec.Command("taskkill", "/T", "/F", "/PID", pid).Run(); err != nil {
		logger.Debug("taskkill failed, killing tool only", "pid", pid, "error", err)
		return cmd.Process.Kill()
	}
	return nil
}

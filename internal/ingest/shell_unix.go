//go:build !windows

package ingest

import (
	"os/exec"
	"syscall"
)

// shellCommand builds the shell invocation for a source command on Unix
// systems. The child gets its own process group so kill reaches any
// grandchildren the shell spawns.
func shellCommand(script string) *exec.Cmd {
	// #nosec G204
	cmd := exec.Command("/bin/sh", "-c", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// kill forcibly terminates the source process group. Best-effort: the
// process may already have exited.
func kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

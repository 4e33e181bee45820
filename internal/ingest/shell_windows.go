//go:build windows

package ingest

import "os/exec"

// shellCommand builds the shell invocation for a source command on Windows.
func shellCommand(script string) *exec.Cmd {
	// #nosec G204
	return exec.Command("cmd", "/C", script)
}

// kill forcibly terminates the source process. Best-effort: the process may
// already have exited.
func kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

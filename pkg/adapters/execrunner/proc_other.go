//go:build !unix

package execrunner

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

// terminate has no graceful signal outside unix; the child is interrupted
// and the coordinator escalates to Kill if it keeps running.
func terminate(cmd *exec.Cmd) error {
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

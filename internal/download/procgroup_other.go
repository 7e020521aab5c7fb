//go:build !unix

package download

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
}

// killProcessGroup only reaches the tool itself on this platform
func killProcessGroup(cmd *exec.Cmd) error {
	return nil
}

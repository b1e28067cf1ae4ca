//go:build !windows

package browser

import (
	"os/exec"
	"syscall"
)

// detach moves the browser into its own process group so it survives surf.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

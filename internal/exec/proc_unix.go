//go:build unix

package exec

import (
	osexec "os/exec"
	"syscall"
)

// isolate puts the child in its own process group so an interrupt reaches
// the interpreter and everything it started.
func isolate(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
	}
}

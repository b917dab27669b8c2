//go:build !unix

package exec

import (
	"os"
	osexec "os/exec"
)

func isolate(cmd *osexec.Cmd) {
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}

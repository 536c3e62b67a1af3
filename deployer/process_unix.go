//go:build unix

package deployer

import (
	"os"
	"os/exec"
	"syscall"
)

// startInOwnGroup makes the site the leader of a new process group, so that killGroup
// also stops anything it forked, such as the server behind an "sh -c" wrapper.
func startInOwnGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func killGroup(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		return os.ErrProcessDone
	}
	return err
}

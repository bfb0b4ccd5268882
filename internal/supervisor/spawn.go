package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// spawnDetached re-executes this binary with the acquire verb in a new
// session, fully decoupled from the invoking process: the loop must
// survive munin reaping its plugin run, and must not inherit the
// plugin's stdout.
func (s *Supervisor) spawnDetached(iface string) (int, error) {
	self, err := os.Executable()
	if err != nil {
		return 0, err
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer devnull.Close()

	cmd := exec.Command(self, "-interface", iface, "acquire")
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return 0, err
	}
	return pid, nil
}

package cookies

import (
	"os/exec"
	"syscall"
	"time"
)

// stopGrace is how long a launched browser gets to exit after SIGTERM
// before it is killed.
const stopGrace = 2 * time.Second

// stopProcess asks the process to terminate and kills it after the grace
// period. Safe to call on a process that already exited.
func stopProcess(cmd *exec.Cmd, grace time.Duration) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(grace):
		_ = cmd.Process.Kill()
		<-done
	}
}

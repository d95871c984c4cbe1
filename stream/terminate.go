package stream

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/StreamKeeper/StreamKeeper/log"
)

// Terminate shuts a child process down with escalation: a soft SIGTERM, a
// grace period to let it flush, then SIGKILL and an unbounded wait for the
// reaper (a hard-killed process must eventually be reaped). A process that is
// already gone at any step counts as terminated, never as an error.
func Terminate(h *ProcessHandle, grace time.Duration) {
	if h == nil {
		return
	}
	select {
	case <-h.done:
		log.Debug(fmt.Sprintf("process %d already terminated", h.PID))
		return
	default:
	}

	log.Info(fmt.Sprintf("terminating %s process %d (SIGTERM, grace %v)", h.Role, h.PID, grace))
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-h.done
			return
		}
		log.Warn(fmt.Sprintf("SIGTERM to process %d failed: %v, killing immediately", h.PID, err))
		kill(h)
		<-h.done
		return
	}

	select {
	case <-h.done:
		log.Info(fmt.Sprintf("process %d terminated gracefully", h.PID))
	case <-time.After(grace):
		log.Warn(fmt.Sprintf("process %d did not exit within %v, sending SIGKILL", h.PID, grace))
		kill(h)
		<-h.done
		log.Info(fmt.Sprintf("process %d killed", h.PID))
	}
}

func kill(h *ProcessHandle) {
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Error(fmt.Sprintf("SIGKILL to process %d failed: %v", h.PID, err))
	}
}

package stream

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/StreamKeeper/StreamKeeper/log"
)

type outcome int

const (
	outcomeClean outcome = iota
	// outcomeCooperative is termination by the supervisor's own shutdown
	// signal, distinguished from an unexpected crash.
	outcomeCooperative
	outcomeFailure
)

func (o outcome) String() string {
	switch o {
	case outcomeClean:
		return "clean"
	case outcomeCooperative:
		return "cooperative stop"
	}
	return "failure"
}

// classifyExit maps the wait error of a reaped child process onto the
// supervisor's outcome taxonomy.
func classifyExit(err error) outcome {
	if err == nil {
		return outcomeClean
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() && ws.Signal() == syscall.SIGTERM {
			return outcomeCooperative
		}
	}
	return outcomeFailure
}

// monitor owns one process handle: it blocks until the child exits,
// classifies the outcome and drives the resulting state transitions. It is
// the only code path that removes the handle from the registry.
func (s *Supervisor) monitor(h *ProcessHandle) {
	defer close(h.monitorDone)
	plog := log.NewLogger(h.StreamID, log.StreamId)
	plog.Info(fmt.Sprintf("monitoring %s process (PID %d)", h.Role, h.PID))

	<-h.Done()
	out := classifyExit(h.ExitError())
	switch out {
	case outcomeClean:
		plog.Info(fmt.Sprintf("%s process %d completed cleanly", h.Role, h.PID))
	case outcomeCooperative:
		plog.Info(fmt.Sprintf("%s process %d stopped on request", h.Role, h.PID))
	default:
		plog.Error(fmt.Sprintf("%s process %d failed: %v: %s",
			h.Role, h.PID, h.ExitError(), h.Stderr()))
	}

	if !s.registry.DetachIfCurrent(h) {
		// Superseded or already removed with its stream; a successor's
		// state is never ours to touch.
		return
	}

	switch h.Role {
	case RoleRecording:
		s.finishRecording(h, out)
	case RoleProxy:
		s.finishProxy(h, out)
	}
}

// finishRecording settles the artifact and the stream record after the
// recording process is gone.
func (s *Supervisor) finishRecording(h *ProcessHandle, out outcome) {
	fixed := false
	info, statErr := os.Stat(h.OutputPath)
	hasData := statErr == nil && info.Size() > 0

	switch {
	case out == outcomeFailure && hasData:
		h.repairAttempted = true
		fixed = s.repairer.Repair(h.OutputPath)
		h.repairSucceeded = fixed
	case out == outcomeClean && hasData:
		// A clean exit closed the container properly.
		fixed = true
	case statErr == nil && info.Size() == 0:
		log.Warn("recording file is empty after process exit, discarding: ", h.OutputPath)
		if err := os.Remove(h.OutputPath); err != nil {
			log.Warn(fmt.Sprintf("could not remove empty file %s: %v", h.OutputPath, err))
		}
	case statErr != nil:
		log.Warn("recording file not found after process exit: ", h.OutputPath)
	}

	s.registry.mutate(h.StreamID, func(st *Stream) {
		st.RecordingFixed = fixed
		if st.Status == Recording {
			if out == outcomeFailure {
				st.Status = Errored
			} else {
				st.Status = Active
			}
			st.RecordingPath = ""
		}
	})
	if snap, ok := s.registry.Get(h.StreamID); ok {
		s.persistStatus(snap)
	}
	s.persistRecordingEnd(h.ID, fixed)
}

// finishProxy clears the proxy locator; only a failure while the stream was
// otherwise healthy is an error condition.
func (s *Supervisor) finishProxy(h *ProcessHandle, out outcome) {
	s.registry.mutate(h.StreamID, func(st *Stream) {
		st.ProxyURL = ""
		if out == outcomeFailure && st.Status == Active {
			st.Status = Errored
		}
	})
	if snap, ok := s.registry.Get(h.StreamID); ok {
		s.persistStatus(snap)
	}
}

package stream

import (
	"os/exec"
	"testing"
	"time"
)

func startHandle(t *testing.T, id string, cmd *exec.Cmd) *ProcessHandle {
	t.Helper()
	h := newProcessHandle(id, "s1", RoleRecording, cmd, "")
	if err := h.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return h
}

func TestTerminateGraceful(t *testing.T) {
	h := startHandle(t, "h1", exec.Command("sh", "-c", "while :; do sleep 0.05; done"))
	begin := time.Now()
	Terminate(h, 5*time.Second)
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Errorf("graceful termination took %v", elapsed)
	}
	select {
	case <-h.Done():
	default:
		t.Fatal("handle not reaped after Terminate")
	}
	if classifyExit(h.ExitError()) != outcomeCooperative {
		t.Errorf("exit = %v, want cooperative stop", h.ExitError())
	}
}

func TestTerminateEscalatesToKill(t *testing.T) {
	h := startHandle(t, "h1", exec.Command("sh", "-c", "trap '' TERM; while :; do sleep 0.05; done"))
	begin := time.Now()
	Terminate(h, 300*time.Millisecond)
	if elapsed := time.Since(begin); elapsed > 3*time.Second {
		t.Errorf("escalated termination took %v", elapsed)
	}
	select {
	case <-h.Done():
	default:
		t.Fatal("handle not reaped after SIGKILL")
	}
	if classifyExit(h.ExitError()) != outcomeFailure {
		t.Errorf("killed process classified as %v, want failure", classifyExit(h.ExitError()))
	}
}

func TestTerminateAlreadyExited(t *testing.T) {
	h := startHandle(t, "h1", exec.Command("true"))
	<-h.Done()
	// Must return immediately and not error on the reaped process.
	Terminate(h, time.Second)
}

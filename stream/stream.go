package stream

import (
	"io"
	"os/exec"
	"sync"
	"time"
)

type Kind int

const (
	KindYouTube Kind = iota
	KindFacebook
	KindTwitch
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindYouTube:
		return "youtube"
	case KindFacebook:
		return "facebook"
	case KindTwitch:
		return "twitch"
	}
	return "other"
}

// Source describes where a live stream comes from. It is immutable once
// validation has filled in Title and IsLive.
type Source struct {
	URL        string
	Kind       Kind
	ExternalId string
	Title      string
	EmbedURL   string
	IsLive     bool
}

type Status int

const (
	PendingValidation Status = iota
	Active
	Recording
	Errored
)

func (s Status) String() string {
	switch s {
	case PendingValidation:
		return "pending_validation"
	case Active:
		return "active"
	case Recording:
		return "recording"
	}
	return "error"
}

var statusTransitions = map[Status][]Status{
	PendingValidation: {Active},
	Active:            {Recording, Errored},
	Recording:         {Active, Errored},
	Errored:           {Active},
}

func (s Status) CanTransition(to Status) bool {
	for _, t := range statusTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

type Role int

const (
	RoleRecording Role = iota
	RoleProxy
)

func (r Role) String() string {
	if r == RoleProxy {
		return "proxy"
	}
	return "recording"
}

// Stream is the registry's record of one live stream. All mutation goes
// through the Registry, which serializes access.
type Stream struct {
	ID              string
	Source          Source
	Status          Status
	RecordingPath   string
	RecordingFixed  bool
	ProxyURL        string
	TranscriptionID string

	transcription *TranscriptionTask
}

// ProcessHandle associates a stream with exactly one running transcoder
// child process of a given role. It is created by the launcher and removed
// from the registry only by the monitor goroutine that waits on it.
type ProcessHandle struct {
	ID         string
	StreamID   string
	Role       Role
	PID        int
	StartedAt  time.Time
	OutputPath string

	cmd     *exec.Cmd
	stderr  *tailBuffer
	exitErr error

	done        chan struct{}
	monitorDone chan struct{}

	// Written by the monitor before monitorDone closes; readable after.
	repairAttempted bool
	repairSucceeded bool
}

func newProcessHandle(id, streamID string, role Role, cmd *exec.Cmd, outputPath string) *ProcessHandle {
	h := &ProcessHandle{
		ID:          id,
		StreamID:    streamID,
		Role:        role,
		OutputPath:  outputPath,
		cmd:         cmd,
		stderr:      newTailBuffer(4096),
		done:        make(chan struct{}),
		monitorDone: make(chan struct{}),
	}
	if cmd.Stderr != nil {
		cmd.Stderr = io.MultiWriter(cmd.Stderr, h.stderr)
	} else {
		cmd.Stderr = h.stderr
	}
	return h
}

// start launches the child process and a reaper goroutine that waits for it.
// Done() is closed exactly once, after the process has been reaped.
func (h *ProcessHandle) start() error {
	if err := h.cmd.Start(); err != nil {
		return err
	}
	h.PID = h.cmd.Process.Pid
	h.StartedAt = time.Now()
	go func() {
		h.exitErr = h.cmd.Wait()
		close(h.done)
	}()
	return nil
}

func (h *ProcessHandle) Done() <-chan struct{} {
	return h.done
}

// ExitError is valid only after Done() is closed.
func (h *ProcessHandle) ExitError() error {
	return h.exitErr
}

func (h *ProcessHandle) Stderr() string {
	return h.stderr.String()
}

// tailBuffer keeps the last max bytes written to it, so a long-running
// transcoder cannot grow the captured error output without bound.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

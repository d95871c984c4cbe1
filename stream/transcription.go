package stream

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"time"

	"github.com/teris-io/shortid"

	"github.com/StreamKeeper/StreamKeeper/log"
)

// Transcriber is the external transcription collaborator. The supervisor
// never owns its machinery, only a cancellable task handle per stream.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
}

// CommandTranscriber shells out to an external speech-to-text command,
// passing the media path as the last argument and reading the transcript
// from stdout.
type CommandTranscriber struct {
	Binary string
	Args   []string
}

func NewCommandTranscriber(binary string, args ...string) *CommandTranscriber {
	return &CommandTranscriber{Binary: binary, Args: args}
}

func (t *CommandTranscriber) Transcribe(ctx context.Context, mediaPath string) (string, error) {
	args := append(append([]string{}, t.Args...), mediaPath)
	out, err := exec.CommandContext(ctx, t.Binary, args...).Output()
	if err != nil {
		return "", fmt.Errorf("transcriber %s: %w", t.Binary, err)
	}
	return string(out), nil
}

// TranscriptionTask is the owned handle to one background transcription.
type TranscriptionTask struct {
	ID     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel requests cooperative cancellation and waits for the task up to
// wait. A timeout is swallowed: the owning stream operation must complete
// regardless of the collaborator's shutdown manners.
func (t *TranscriptionTask) Cancel(wait time.Duration) {
	if t == nil {
		return
	}
	t.cancel()
	select {
	case <-t.done:
	case <-time.After(wait):
		log.Warn("transcription task ", t.ID, " did not stop in time, abandoning")
	}
}

// StartTranscription kicks off a background transcription of the stream's
// current recording artifact, cancelling any previous task for the stream.
// The transcript is written next to the recordings; the task id is returned
// so callers can correlate.
func (s *Supervisor) StartTranscription(id string, tr Transcriber) (string, error) {
	snap, ok := s.registry.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	if snap.RecordingPath == "" {
		return "", ErrNotRecording
	}
	if _, err := os.Stat(snap.RecordingPath); err != nil {
		return "", fmt.Errorf("recording file not found: %w", err)
	}

	if snap.transcription != nil {
		snap.transcription.Cancel(time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &TranscriptionTask{
		ID:     shortid.MustGenerate(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.registry.mutate(id, func(st *Stream) {
		st.transcription = task
		st.TranscriptionID = task.ID
	})

	mediaPath := snap.RecordingPath
	go func() {
		defer close(task.done)
		defer cancel()
		text, err := tr.Transcribe(ctx, mediaPath)
		if err != nil {
			log.Error(fmt.Sprintf("transcription %s for stream %s failed: %v", task.ID, id, err))
		} else {
			out := path.Join(s.cfg.RecordDir, fmt.Sprintf("live_transcript_%s_%d.txt", id, time.Now().Unix()))
			if err := os.WriteFile(out, []byte(text), 0644); err != nil {
				log.Error("could not write transcript: ", err)
			} else {
				log.Info("transcription finished: ", out)
			}
		}
		// Clear the ref only if a newer task has not replaced us.
		s.registry.mutate(id, func(st *Stream) {
			if st.TranscriptionID == task.ID {
				st.TranscriptionID = ""
				st.transcription = nil
			}
		})
	}()

	log.Info(fmt.Sprintf("started transcription task %s for stream %s", task.ID, id))
	return task.ID, nil
}

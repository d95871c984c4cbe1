package stream

import "errors"

var (
	// ErrNotFound is returned when an operation names an unknown stream id.
	ErrNotFound = errors.New("stream not found")
	// ErrNotLive is returned when a source fails liveness validation.
	ErrNotLive = errors.New("stream is not live")
	// ErrAlreadyRunning is returned when a second process of the same role
	// is started for a stream while the first is still live.
	ErrAlreadyRunning = errors.New("process already running for this role")
	// ErrResolutionFailed is returned when no playable media URL could be
	// resolved for a source.
	ErrResolutionFailed = errors.New("failed to resolve playable url")
	// ErrStartupFailed is returned when the transcoder dies within the
	// immediate-crash window after launch.
	ErrStartupFailed = errors.New("transcoder failed on startup")
	// ErrNotRecording is returned by StopRecording when the stream has no
	// live recording process.
	ErrNotRecording = errors.New("no active recording for stream")
	// ErrNotActive is returned when an operation requires an active stream.
	ErrNotActive = errors.New("stream is not in active state")
)

package stream

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/teris-io/shortid"

	"github.com/StreamKeeper/StreamKeeper/log"
	"github.com/StreamKeeper/StreamKeeper/utils"
)

// resolvePlayable turns the source URL into something the transcoder can
// open. Unrecognized sources may already be direct media URLs, so for
// KindOther a failed resolution falls back to the original URL verbatim.
func (s *Supervisor) resolvePlayable(src Source) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ResolveLimit)
	defer cancel()
	direct, err := s.resolver.Resolve(ctx, src.URL)
	if err != nil || direct == "" {
		if src.Kind == KindOther {
			log.Warn("url resolution failed for unrecognized source, using original url: ", src.URL)
			return src.URL, nil
		}
		log.Error(fmt.Sprintf("url resolution failed for %s: %v", src.URL, err))
		return "", ErrResolutionFailed
	}
	return direct, nil
}

// launch spawns a transcoder process and watches the immediate-crash window:
// a child that dies right away is a startup failure surfaced to the caller,
// not a runtime failure left to the monitor.
func (s *Supervisor) launch(h *ProcessHandle) error {
	if err := h.start(); err != nil {
		return fmt.Errorf("%w: %v", ErrStartupFailed, err)
	}
	select {
	case <-h.Done():
		return fmt.Errorf("%w: %v: %s", ErrStartupFailed, h.ExitError(), h.Stderr())
	case <-time.After(s.cfg.StartupGrace):
	}
	return nil
}

// StartProxy starts re-packaging the stream into a rolling browser-playable
// HLS playlist and returns the playlist URL path.
func (s *Supervisor) StartProxy(id string) (string, error) {
	snap, ok := s.registry.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	if _, ok := s.registry.Handle(id, RoleProxy); ok {
		return "", ErrAlreadyRunning
	}

	directURL, err := s.resolvePlayable(snap.Source)
	if err != nil {
		return "", err
	}

	proxyID := shortid.MustGenerate()
	hlsDir := path.Join(s.cfg.HLSDir, fmt.Sprintf("live_%s", proxyID))
	if err := os.MkdirAll(hlsDir, 0755); err != nil {
		return "", fmt.Errorf("create hls dir: %w", err)
	}
	playlist := path.Join(hlsDir, "playlist.m3u8")

	h := newProcessHandle(proxyID, id, RoleProxy, s.transcoder.ProxyCommand(directURL, playlist), playlist)
	if err := s.launch(h); err != nil {
		return "", err
	}
	if err := s.registry.Attach(h); err != nil {
		// Lost the race for the role; the just-spawned child is ours to
		// put down.
		Terminate(h, s.cfg.ShutdownGrace)
		return "", err
	}

	proxyURL := fmt.Sprintf("/hls/live_%s/playlist.m3u8", proxyID)
	s.registry.mutate(id, func(st *Stream) { st.ProxyURL = proxyURL })
	go s.monitor(h)
	log.Info(fmt.Sprintf("proxy stream started for %s (PID %d): %s", id, h.PID, proxyURL))
	return proxyURL, nil
}

// StartRecording starts recording the stream to a durable container file and
// returns the output path.
func (s *Supervisor) StartRecording(id string) (string, error) {
	snap, ok := s.registry.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	if _, ok := s.registry.Handle(id, RoleRecording); ok {
		return "", ErrAlreadyRunning
	}
	if snap.Status != Active {
		return "", fmt.Errorf("%w: status is %s", ErrNotActive, snap.Status)
	}

	directURL, err := s.resolvePlayable(snap.Source)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.cfg.RecordDir, 0755); err != nil {
		return "", fmt.Errorf("create recordings dir: %w", err)
	}
	outputFile := path.Join(s.cfg.RecordDir, recordingFileName(snap.Source))

	recID := shortid.MustGenerate()
	h := newProcessHandle(recID, id, RoleRecording, s.transcoder.RecordCommand(directURL, outputFile), outputFile)
	if err := s.launch(h); err != nil {
		return "", err
	}
	if err := s.registry.Attach(h); err != nil {
		Terminate(h, s.cfg.ShutdownGrace)
		return "", err
	}

	s.registry.mutate(id, func(st *Stream) {
		st.Status = Recording
		st.RecordingPath = outputFile
		st.RecordingFixed = false
	})
	s.persistRecordingStart(recID, id, outputFile)
	if after, ok := s.registry.Get(id); ok {
		s.persistStatus(after)
	}
	go s.monitor(h)
	log.Info(fmt.Sprintf("recording started for stream %s (PID %d) to %s", id, h.PID, outputFile))
	return outputFile, nil
}

func recordingFileName(src Source) string {
	identifier := src.ExternalId
	if identifier == "" {
		identifier = "stream"
	}
	title := utils.SafeFileName(src.Title)
	return fmt.Sprintf("%s_%s_%s_%d.mp4", src.Kind, identifier, title, time.Now().Unix())
}

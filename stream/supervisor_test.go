package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResolver struct {
	url string
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, url string) (string, error) {
	return f.url, f.err
}

func newTestSupervisor(t *testing.T, prober Prober, tr Transcoder) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	return NewSupervisor(Config{
		HLSDir:        filepath.Join(dir, "hls"),
		RecordDir:     filepath.Join(dir, "recordings"),
		StartupGrace:  100 * time.Millisecond,
		StopGrace:     3 * time.Second,
		CleanupGrace:  time.Second,
		ShutdownGrace: time.Second,
		Prober:        prober,
		Resolver:      &fakeResolver{url: "https://edge.example/in.m3u8"},
		Transcoder:    tr,
	})
}

func TestAddURLLive(t *testing.T) {
	s := newTestSupervisor(t, &fakeProber{live: true, title: "Test Show"}, &fakeTranscoder{})
	id, err := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")
	if err != nil {
		t.Fatalf("AddURL: %v", err)
	}
	snap, ok := s.Get(id)
	if !ok {
		t.Fatal("stream not registered")
	}
	if snap.Status != Active {
		t.Errorf("status = %v, want active", snap.Status)
	}
	if snap.Source.Title != "Test Show" || !snap.Source.IsLive {
		t.Errorf("source = %+v", snap.Source)
	}
}

func TestAddURLNotLive(t *testing.T) {
	s := newTestSupervisor(t, &fakeProber{live: false}, &fakeTranscoder{})
	if _, err := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00"); !errors.Is(err, ErrNotLive) {
		t.Fatalf("err = %v, want ErrNotLive", err)
	}
	if got := len(s.Streams()); got != 0 {
		t.Errorf("rejected stream left %d records in registry", got)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	tr := &fakeTranscoder{recordBody: "container bytes", recordHangs: true}
	s := newTestSupervisor(t, &fakeProber{live: true, title: "Test Show"}, tr)
	id, err := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")
	if err != nil {
		t.Fatalf("AddURL: %v", err)
	}

	out, err := s.StartRecording(id)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("recording file missing: %v", err)
	}
	snap, _ := s.Get(id)
	if snap.Status != Recording || snap.RecordingPath != out {
		t.Errorf("after start: status=%v path=%q", snap.Status, snap.RecordingPath)
	}

	if _, err := s.StartRecording(id); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second StartRecording: err = %v, want ErrAlreadyRunning", err)
	}

	result, err := s.StopRecording(id)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if !result.Usable || !result.FixAttempted || !result.FixSucceeded {
		t.Errorf("stop result = %+v", result)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "repaired:container bytes" {
		t.Errorf("artifact = %q, repair did not run", got)
	}
	snap, _ = s.Get(id)
	if snap.Status != Active || snap.RecordingPath != "" {
		t.Errorf("after stop: status=%v path=%q", snap.Status, snap.RecordingPath)
	}
}

func TestStartRecordingRequiresActive(t *testing.T) {
	s := newTestSupervisor(t, &fakeProber{live: true}, &fakeTranscoder{recordHangs: true})
	id, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")
	if err := s.registry.SetStatus(id, Errored); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartRecording(id); !errors.Is(err, ErrNotActive) {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}
}

func TestStartRecordingImmediateCrash(t *testing.T) {
	// A record command that exits within the startup window is a startup
	// failure, even with exit status zero.
	s := newTestSupervisor(t, &fakeProber{live: true}, &fakeTranscoder{recordBody: "x"})
	id, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")
	if _, err := s.StartRecording(id); !errors.Is(err, ErrStartupFailed) {
		t.Fatalf("err = %v, want ErrStartupFailed", err)
	}
	if _, ok := s.registry.Handle(id, RoleRecording); ok {
		t.Error("failed start left a handle attached")
	}
}

func TestStopRecordingWithoutRecording(t *testing.T) {
	s := newTestSupervisor(t, &fakeProber{live: true}, &fakeTranscoder{})
	id, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")
	if _, err := s.StopRecording(id); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
	if _, err := s.StopRecording("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestStopRecordingAfterSignaledExit(t *testing.T) {
	// Real transcoders often trap SIGTERM and exit non-zero, which the
	// monitor classifies as a failure. A requested stop must still settle
	// the artifact and return the stream to active.
	tr := &fakeTranscoder{recordBody: "container bytes", recordTrapExit: 7}
	s := newTestSupervisor(t, &fakeProber{live: true}, tr)
	id, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")

	out, err := s.StartRecording(id)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	result, err := s.StopRecording(id)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if !result.FixAttempted || !result.FixSucceeded || !result.Usable {
		t.Errorf("stop result = %+v, want repaired and usable", result)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "repaired:container bytes" {
		t.Errorf("artifact = %q", got)
	}
	snap, _ := s.Get(id)
	if snap.Status != Active {
		t.Errorf("status after stop = %v, want active", snap.Status)
	}
	if snap.RecordingPath != "" {
		t.Errorf("recording path not cleared: %q", snap.RecordingPath)
	}
}

func TestStopRecordingAfterSignaledExitRepairFails(t *testing.T) {
	tr := &fakeTranscoder{recordBody: "container bytes", recordTrapExit: 7, repairFails: true}
	s := newTestSupervisor(t, &fakeProber{live: true}, tr)
	id, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")

	if _, err := s.StartRecording(id); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	result, err := s.StopRecording(id)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if !result.FixAttempted || result.FixSucceeded || result.Usable {
		t.Errorf("stop result = %+v, want attempted but not usable", result)
	}
	snap, _ := s.Get(id)
	if snap.Status != Active {
		t.Errorf("status after stop = %v, want active", snap.Status)
	}
}

func TestStopRecordingConcurrent(t *testing.T) {
	repairLog := filepath.Join(t.TempDir(), "repairs.log")
	tr := &fakeTranscoder{recordBody: "container bytes", recordHangs: true, repairLog: repairLog}
	s := newTestSupervisor(t, &fakeProber{live: true}, tr)
	id, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")

	if _, err := s.StartRecording(id); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.StopRecording(id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var stopped, rejected int
	for err := range errs {
		switch {
		case err == nil:
			stopped++
		case errors.Is(err, ErrNotRecording):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if stopped != 1 || rejected != 1 {
		t.Errorf("stopped=%d rejected=%d, want exactly one of each", stopped, rejected)
	}
	b, err := os.ReadFile(repairLog)
	if err != nil {
		t.Fatalf("repair never ran: %v", err)
	}
	if n := strings.Count(string(b), "run"); n != 1 {
		t.Errorf("repair ran %d times, want once", n)
	}
}

func TestProxyLifecycle(t *testing.T) {
	s := newTestSupervisor(t, &fakeProber{live: true}, &fakeTranscoder{})
	id, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")

	proxyURL, err := s.StartProxy(id)
	if err != nil {
		t.Fatalf("StartProxy: %v", err)
	}
	if !strings.HasPrefix(proxyURL, "/hls/live_") || !strings.HasSuffix(proxyURL, "/playlist.m3u8") {
		t.Errorf("proxy url = %q", proxyURL)
	}
	snap, _ := s.Get(id)
	if snap.ProxyURL != proxyURL {
		t.Errorf("record proxy url = %q, want %q", snap.ProxyURL, proxyURL)
	}
	if _, err := s.StartProxy(id); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second StartProxy: err = %v, want ErrAlreadyRunning", err)
	}

	s.Cleanup(id)
	if got := len(s.Streams()); got != 0 {
		t.Errorf("cleanup left %d records", got)
	}
	if got := len(s.Handles()); got != 0 {
		t.Errorf("cleanup left %d handles", got)
	}
	// Idempotent on unknown ids.
	s.Cleanup(id)
}

func TestShutdownAll(t *testing.T) {
	s := newTestSupervisor(t, &fakeProber{live: true, url: "https://edge.example/x.m3u8"}, &fakeTranscoder{recordBody: "x", recordHangs: true})
	id1, _ := s.AddURL(context.Background(), "https://www.youtube.com/watch?v=abc123xyz00")
	id2, _ := s.AddURL(context.Background(), "https://www.twitch.tv/somechannel")
	if _, err := s.StartRecording(id1); err != nil {
		t.Fatalf("record %s: %v", id1, err)
	}
	if _, err := s.StartProxy(id2); err != nil {
		t.Fatalf("proxy %s: %v", id2, err)
	}
	handles := s.Handles()
	if len(handles) != 2 {
		t.Fatalf("got %d handles, want 2", len(handles))
	}

	s.ShutdownAll()
	for _, h := range handles {
		select {
		case <-h.Done():
		default:
			t.Errorf("%s process %d still running after shutdown", h.Role, h.PID)
		}
	}
}

package stream

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	config "github.com/MeloQi/EasyGoLib/utils"
	"github.com/teris-io/shortid"

	"github.com/StreamKeeper/StreamKeeper/log"
)

// Store persists registry mutations. All calls are best-effort: a storage
// failure never fails the stream operation that triggered it.
type Store interface {
	SaveStream(s Stream) error
	UpdateStreamStatus(id string, status Status) error
	DeleteStream(id string) error
	CreateRecording(id, streamID, path string, start time.Time) error
	FinishRecording(id string, fixed bool) error
}

// Config carries the supervisor's directories, grace periods and
// collaborators. Zero-value durations fall back to defaults.
type Config struct {
	HLSDir    string
	RecordDir string

	StartupGrace  time.Duration // immediate-crash window after spawn
	StopGrace     time.Duration // manual stop, lets the transcoder flush
	CleanupGrace  time.Duration // generic stream cleanup
	ShutdownGrace time.Duration // process-wide shutdown, best-effort
	ResolveLimit  time.Duration // bound on URL resolution

	Prober     Prober
	Resolver   Resolver
	Transcoder Transcoder
	Store      Store
}

// Supervisor is the composition root: it owns the registry and exposes the
// public stream operations. There is no global state outside one Supervisor
// instance; a top-level signal harness calls ShutdownAll.
type Supervisor struct {
	registry   *Registry
	validator  *Validator
	resolver   Resolver
	transcoder Transcoder
	repairer   *Repairer
	store      Store
	cfg        Config

	stopMu    sync.Mutex
	stopLocks map[string]*sync.Mutex
}

var (
	instance *Supervisor
	once     sync.Once
)

// GetSupervisor returns the process-wide supervisor, configured from the
// application config file.
func GetSupervisor() *Supervisor {
	once.Do(func() {
		sec := config.Conf().Section("stream")
		prober := NewCommandProber(
			sec.Key("ytdlp_binary").MustString("yt-dlp"),
			sec.Key("ffprobe_binary").MustString("ffprobe"),
			time.Duration(sec.Key("probe_timeout_second").MustInt(30))*time.Second,
		)
		instance = NewSupervisor(Config{
			HLSDir:     config.Conf().Section("hls").Key("dir_path").MustString("hls"),
			RecordDir:  config.Conf().Section("record").Key("output_dir_path").MustString("recordings"),
			Prober:     prober,
			Resolver:   NewYtDlpResolver(prober),
			Transcoder: NewFFmpegTranscoder(),
		})
	})
	return instance
}

func NewSupervisor(cfg Config) *Supervisor {
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = 500 * time.Millisecond
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 10 * time.Second
	}
	if cfg.CleanupGrace <= 0 {
		cfg.CleanupGrace = 3 * time.Second
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = time.Second
	}
	if cfg.ResolveLimit <= 0 {
		cfg.ResolveLimit = 60 * time.Second
	}
	return &Supervisor{
		registry:   NewRegistry(),
		validator:  NewValidator(cfg.Prober),
		resolver:   cfg.Resolver,
		transcoder: cfg.Transcoder,
		repairer:   NewRepairer(cfg.Transcoder),
		store:      cfg.Store,
		cfg:        cfg,
		stopLocks:  make(map[string]*sync.Mutex),
	}
}

// SetStore attaches the persistence layer after construction.
func (s *Supervisor) SetStore(store Store) {
	s.store = store
}

// Add registers an already-validated source and returns the new stream id.
func (s *Supervisor) Add(src Source) (string, error) {
	id := shortid.MustGenerate()
	st, err := s.registry.Add(id, src)
	if err != nil {
		return "", err
	}
	s.persistSave(*st)
	log.Info(fmt.Sprintf("added stream %s (%s, %s)", id, src.Kind, src.URL))
	return id, nil
}

// AddURL classifies and validates a raw URL and registers it when live.
func (s *Supervisor) AddURL(ctx context.Context, url string) (string, error) {
	src := Detect(url)
	id := shortid.MustGenerate()
	s.registry.addPending(id, src)
	if !s.validator.Validate(ctx, &src) {
		s.registry.remove(id)
		return "", ErrNotLive
	}
	src.IsLive = true
	if err := s.registry.activate(id, src); err != nil {
		return "", err
	}
	if snap, ok := s.registry.Get(id); ok {
		s.persistSave(snap)
	}
	log.Info(fmt.Sprintf("added stream %s (%s, %q)", id, src.Kind, src.Title))
	return id, nil
}

// Readopt re-validates a previously known stream and registers it under its
// old id. Used at startup to pick up streams persisted across a restart;
// processes themselves are never resurrected.
func (s *Supervisor) Readopt(ctx context.Context, id, url string) error {
	if _, ok := s.registry.Get(id); ok {
		return nil
	}
	src := Detect(url)
	s.registry.addPending(id, src)
	if !s.validator.Validate(ctx, &src) {
		s.registry.remove(id)
		return ErrNotLive
	}
	src.IsLive = true
	if err := s.registry.activate(id, src); err != nil {
		return err
	}
	if snap, ok := s.registry.Get(id); ok {
		s.persistSave(snap)
	}
	log.Info("readopted stream ", id)
	return nil
}

// Get returns a snapshot of one stream record.
func (s *Supervisor) Get(id string) (Stream, bool) {
	return s.registry.Get(id)
}

// Streams returns snapshots of all stream records.
func (s *Supervisor) Streams() []Stream {
	return s.registry.Streams()
}

// Handles returns every live process handle across all streams.
func (s *Supervisor) Handles() []*ProcessHandle {
	return s.registry.AllHandles()
}

// StopResult tells the caller whether stopping a recording left a usable
// artifact and what the repair did to get there.
type StopResult struct {
	StreamID      string
	RecordingPath string
	FixAttempted  bool
	FixSucceeded  bool
	Usable        bool
}

// stopLock serializes stop-and-settle work per stream so two concurrent
// stops never run a repair on the same artifact at once.
func (s *Supervisor) stopLock(id string) *sync.Mutex {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	m, ok := s.stopLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.stopLocks[id] = m
	}
	return m
}

// StopRecording gracefully terminates the live recording process, settles
// the artifact (repair or discard) and returns the stream to active.
func (s *Supervisor) StopRecording(id string) (StopResult, error) {
	mu := s.stopLock(id)
	mu.Lock()
	defer mu.Unlock()

	snap, ok := s.registry.Get(id)
	if !ok {
		return StopResult{}, ErrNotFound
	}
	result := StopResult{StreamID: id}

	h, ok := s.registry.Handle(id, RoleRecording)
	if !ok {
		// Status said recording but no process backs it up; put the
		// record straight before reporting the precondition failure.
		if snap.Status == Recording {
			log.Warn(fmt.Sprintf("stream %s status is recording but no process found, resetting", id))
			s.registry.mutate(id, func(st *Stream) {
				st.Status = Active
				st.RecordingPath = ""
				st.RecordingFixed = false
			})
		}
		return result, ErrNotRecording
	}

	recordingPath := snap.RecordingPath
	log.Info(fmt.Sprintf("stopping recording for stream %s (PID %d)", id, h.PID))
	Terminate(h, s.cfg.StopGrace)
	// The monitor owns handle removal and the cooperative-stop bookkeeping;
	// wait for it so the repair below never races it.
	<-h.monitorDone

	if recordingPath != "" {
		after, _ := s.registry.Get(id)
		info, statErr := os.Stat(recordingPath)
		hasData := statErr == nil && info.Size() > 0
		switch {
		case h.repairAttempted:
			// The monitor already settled the artifact (failure path);
			// report its outcome rather than repairing twice.
			result.FixAttempted = true
			result.FixSucceeded = h.repairSucceeded
			if hasData {
				result.RecordingPath = recordingPath
				result.Usable = h.repairSucceeded
			}
		case after.RecordingFixed:
			// A clean exit closed the container without needing a repair.
			result.RecordingPath = recordingPath
			result.Usable = true
		case hasData:
			result.FixAttempted = true
			result.FixSucceeded = s.repairer.Repair(recordingPath)
			if info, err := os.Stat(recordingPath); err == nil && info.Size() > 0 {
				result.RecordingPath = recordingPath
				result.Usable = result.FixSucceeded
			}
			s.registry.mutate(id, func(st *Stream) { st.RecordingFixed = result.FixSucceeded })
			s.persistRecordingEnd(h.ID, result.FixSucceeded)
		case statErr == nil:
			log.Warn("recording file is empty after stop, discarding: ", recordingPath)
			os.Remove(recordingPath)
		default:
			log.Warn("recording file not found after stop: ", recordingPath)
		}
	}

	// A requested stop always lands on active, even when the transcoder
	// exited non-zero on the stop signal and the monitor marked the stream
	// errored.
	s.registry.mutate(id, func(st *Stream) {
		if st.Status == Recording || st.Status == Errored {
			st.Status = Active
		}
		st.RecordingPath = ""
	})
	if after, ok := s.registry.Get(id); ok {
		s.persistStatus(after)
	}
	return result, nil
}

// Cleanup releases every resource owned by a stream: live processes of both
// roles, the transcription task and the record itself. It is idempotent;
// unknown ids are a no-op.
func (s *Supervisor) Cleanup(id string) {
	snap, ok := s.registry.Get(id)
	if !ok {
		log.Debug("cleanup called for unknown stream ", id)
		return
	}
	log.Info("cleaning up stream ", id)

	for _, h := range s.registry.HandlesOf(id) {
		Terminate(h, s.cfg.CleanupGrace)
		<-h.monitorDone
	}
	// No repair on generic cleanup, but never keep an empty artifact.
	if snap.RecordingPath != "" {
		if info, err := os.Stat(snap.RecordingPath); err == nil && info.Size() == 0 {
			log.Warn("removing empty recording file during cleanup: ", snap.RecordingPath)
			os.Remove(snap.RecordingPath)
		}
	}
	if snap.transcription != nil {
		snap.transcription.Cancel(time.Second)
	}
	s.registry.remove(id)
	s.persistDelete(id)
	s.stopMu.Lock()
	delete(s.stopLocks, id)
	s.stopMu.Unlock()
}

// ShutdownAll terminates every tracked process across every stream,
// best-effort and in parallel. It waits for the processes to die but not for
// monitors or repairs.
func (s *Supervisor) ShutdownAll() {
	handles := s.registry.AllHandles()
	if len(handles) == 0 {
		return
	}
	log.Info(fmt.Sprintf("shutting down %d transcoder processes", len(handles)))
	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *ProcessHandle) {
			defer wg.Done()
			Terminate(h, s.cfg.ShutdownGrace)
		}(h)
	}
	wg.Wait()
}

func (s *Supervisor) persistSave(snap Stream) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveStream(snap); err != nil {
		log.Warn("stream db save failed: ", err)
	}
}

func (s *Supervisor) persistStatus(snap Stream) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateStreamStatus(snap.ID, snap.Status); err != nil {
		log.Warn("stream db status update failed: ", err)
	}
}

func (s *Supervisor) persistDelete(id string) {
	if s.store == nil {
		return
	}
	if err := s.store.DeleteStream(id); err != nil {
		log.Warn("stream db delete failed: ", err)
	}
}

func (s *Supervisor) persistRecordingStart(id, streamID, path string) {
	if s.store == nil {
		return
	}
	if err := s.store.CreateRecording(id, streamID, path, time.Now()); err != nil {
		log.Warn("recording db insert failed: ", err)
	}
}

func (s *Supervisor) persistRecordingEnd(id string, fixed bool) {
	if s.store == nil {
		return
	}
	if err := s.store.FinishRecording(id, fixed); err != nil {
		log.Warn("recording db update failed: ", err)
	}
}

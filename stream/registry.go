package stream

import (
	"fmt"
	"sync"

	"github.com/StreamKeeper/StreamKeeper/log"
)

type handleKey struct {
	streamID string
	role     Role
}

// Registry is the shared table of stream records and their process handles.
// It is the only shared mutable structure; critical sections are short and
// never span process waits or subprocess calls.
type Registry struct {
	lock    sync.RWMutex
	streams map[string]*Stream
	handles map[handleKey]*ProcessHandle
}

func NewRegistry() *Registry {
	return &Registry{
		streams: make(map[string]*Stream),
		handles: make(map[handleKey]*ProcessHandle),
	}
}

// Add creates a record for an already-validated source.
func (r *Registry) Add(id string, src Source) (*Stream, error) {
	if !src.IsLive {
		return nil, ErrNotLive
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	s := &Stream{ID: id, Source: src, Status: Active}
	r.streams[id] = s
	return s, nil
}

// addPending creates a record awaiting validation.
func (r *Registry) addPending(id string, src Source) *Stream {
	r.lock.Lock()
	defer r.lock.Unlock()
	s := &Stream{ID: id, Source: src, Status: PendingValidation}
	r.streams[id] = s
	return s
}

// activate marks a pending record as validated, storing the updated source.
func (r *Registry) activate(id string, src Source) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return ErrNotFound
	}
	if !s.Status.CanTransition(Active) {
		return fmt.Errorf("illegal status transition %s -> %s", s.Status, Active)
	}
	s.Source = src
	s.Status = Active
	return nil
}

func (r *Registry) remove(id string) (*Stream, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.streams[id]
	if ok {
		delete(r.streams, id)
	}
	return s, ok
}

// Get returns a snapshot copy of the record.
func (r *Registry) Get(id string) (Stream, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.streams[id]
	if !ok {
		return Stream{}, false
	}
	return *s, true
}

// Streams returns snapshot copies of all records.
func (r *Registry) Streams() []Stream {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]Stream, 0, len(r.streams))
	for _, s := range r.streams {
		out = append(out, *s)
	}
	return out
}

// mutate applies fn to the live record under the lock. fn must not block.
func (r *Registry) mutate(id string, fn func(*Stream)) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return false
	}
	fn(s)
	return true
}

// SetStatus performs a checked status transition.
func (r *Registry) SetStatus(id string, to Status) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status == to {
		return nil
	}
	if !s.Status.CanTransition(to) {
		return fmt.Errorf("illegal status transition %s -> %s", s.Status, to)
	}
	s.Status = to
	return nil
}

// Attach registers a handle for its stream and role. At most one live handle
// per role is allowed; a second attach fails instead of returning the first.
func (r *Registry) Attach(h *ProcessHandle) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.streams[h.StreamID]; !ok {
		return ErrNotFound
	}
	key := handleKey{h.StreamID, h.Role}
	if _, ok := r.handles[key]; ok {
		return ErrAlreadyRunning
	}
	r.handles[key] = h
	return nil
}

// DetachIfCurrent removes h only if the registry still references this exact
// handle. A monitor whose handle was superseded must not sever the successor.
func (r *Registry) DetachIfCurrent(h *ProcessHandle) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	key := handleKey{h.StreamID, h.Role}
	cur, ok := r.handles[key]
	if !ok || cur.ID != h.ID {
		if ok {
			log.Warn(fmt.Sprintf("%s handle %s for stream %s was superseded by %s, leaving registry untouched",
				h.Role, h.ID, h.StreamID, cur.ID))
		}
		return false
	}
	delete(r.handles, key)
	return true
}

// Handle returns the live handle of the given role, if any.
func (r *Registry) Handle(streamID string, role Role) (*ProcessHandle, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	h, ok := r.handles[handleKey{streamID, role}]
	return h, ok
}

// HandlesOf returns all live handles owned by one stream.
func (r *Registry) HandlesOf(streamID string) []*ProcessHandle {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*ProcessHandle, 0, 2)
	for _, role := range []Role{RoleRecording, RoleProxy} {
		if h, ok := r.handles[handleKey{streamID, role}]; ok {
			out = append(out, h)
		}
	}
	return out
}

// AllHandles returns every live handle across every stream.
func (r *Registry) AllHandles() []*ProcessHandle {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]*ProcessHandle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

func (r *Registry) Size() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.streams)
}

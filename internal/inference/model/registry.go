package model

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"CXRaide/pkg/nn"

	"github.com/sirupsen/logrus"
)

// Registry owns one slot per model key and is the only place slot state changes.
// Acquire never waits for a load: loads run on their own goroutine.
type Registry struct {
	mu     sync.RWMutex
	slots  map[Key]*slot
	loader *Loader
	log    *logrus.Logger
	closed bool

	// inflight counts running loads. idle is closed when it drops to zero,
	// and replaced when it rises from zero.
	inflight int
	idle     chan struct{}
}

func NewRegistry(log *logrus.Logger, loader *Loader, specs []Spec) *Registry {
	idle := make(chan struct{})
	close(idle)
	r := &Registry{
		slots:  make(map[Key]*slot, len(specs)),
		loader: loader,
		log:    log,
		idle:   idle,
	}
	for _, s := range specs {
		r.slots[s.Key] = &slot{
			spec:  s,
			state: StateNotLoaded,
		}
	}
	return r
}

// Spec returns the static description of a model
func (r *Registry) Spec(key Key) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[key]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}
	return s.spec, nil
}

// Acquire returns the detector for key if it is Ready. Otherwise it returns a nil
// detector, starting a load first if the slot is NotLoaded or Failed.
func (r *Registry) Acquire(key Key) (nn.Detector, Status, error) {
	r.mu.RLock()
	s, ok := r.slots[key]
	if !ok {
		r.mu.RUnlock()
		return nil, Status{}, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}
	st := s.status()
	det := s.detector
	r.mu.RUnlock()

	switch st.State {
	case StateReady:
		return det, st, nil
	case StateLoading:
		return nil, st, nil
	}

	st, started := r.transition(key, []State{StateNotLoaded, StateFailed}, StateLoading, nil)
	if started {
		go r.runLoad(s.spec)
	}
	if st.State == StateReady {
		// Another caller's load finished between the two checks
		r.mu.RLock()
		det = s.detector
		r.mu.RUnlock()
		return det, st, nil
	}
	return nil, st, nil
}

// Rearm moves a Failed slot back to NotLoaded so that the next Acquire retries the load
func (r *Registry) Rearm(key Key) (Status, error) {
	if _, err := r.Status(key); err != nil {
		return Status{}, err
	}
	st, ok := r.transition(key, []State{StateFailed}, StateNotLoaded, nil)
	if !ok {
		return st, fmt.Errorf("%w: %v is %v", ErrNotRearmable, key, st.State)
	}
	return st, nil
}

func (r *Registry) Status(key Key) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[key]
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}
	return s.status(), nil
}

// Statuses returns the status of every slot, ordered by key
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.slots))
	for _, s := range r.slots {
		out = append(out, s.status())
	}
	slices.SortFunc(out, func(a, b Status) int {
		return compareKeys(a.Key, b.Key)
	})
	return out
}

// Wait blocks until no load is in flight, or ctx is done
func (r *Registry) Wait(ctx context.Context) error {
	r.mu.RLock()
	idle := r.idle
	r.mu.RUnlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close refuses new loads and releases every ready detector. It does not wait:
// a load still running when Close is called releases its own detector when it finishes.
// Use Wait to know when that has happened.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, s := range r.slots {
		if s.state == StateLoading {
			continue
		}
		if s.detector != nil {
			s.detector.Close()
			s.detector = nil
		}
		s.state = StateNotLoaded
	}
}

func (r *Registry) runLoad(spec Spec) {
	defer r.loadDone()

	out := r.loader.load(spec)
	to := StateReady
	if out.kind == outcomeFailed {
		to = StateFailed
	}
	if _, ok := r.transition(spec.Key, []State{StateLoading}, to, &out); !ok && out.detector != nil {
		out.detector.Close()
	}
}

// loadStarted must be called with r.mu held
func (r *Registry) loadStarted() {
	if r.inflight == 0 {
		r.idle = make(chan struct{})
	}
	r.inflight++
}

func (r *Registry) loadDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
	if r.inflight == 0 {
		close(r.idle)
	}
}

// transition is the single guarded state change. It flips key from one of the
// states in from to the state to, recording the outcome of a load if there is one.
// The returned status is the slot after the call, whether or not it changed.
func (r *Registry) transition(key Key, from []State, to State, out *outcome) (Status, bool) {
	r.mu.Lock()
	s := r.slots[key]
	prev := s.state
	if !slices.Contains(from, prev) || (r.closed && to == StateLoading) {
		st := s.status()
		r.mu.Unlock()
		return st, false
	}
	if r.closed && out != nil {
		// Registry was closed while loading, nothing may be published
		s.state = StateNotLoaded
		st := s.status()
		r.mu.Unlock()
		return st, false
	}

	s.state = to
	switch to {
	case StateLoading:
		s.loads++
		r.loadStarted()
	case StateNotLoaded:
		s.lastErr = nil
	case StateReady, StateFailed:
		s.detector = out.detector
		s.degraded = out.kind == outcomeDegraded
		s.lastErr = out.err
		s.artifact = out.artifact
		if to == StateReady {
			s.loadedAt = time.Now()
		}
	}
	st := s.status()
	r.mu.Unlock()

	fields := logrus.Fields{
		"model":    key,
		"from":     prev.String(),
		"to":       to.String(),
		"degraded": st.Degraded,
	}
	if st.LastError != nil {
		fields["error"] = st.LastError.Error()
	}
	if to == StateFailed {
		r.log.WithFields(fields).Error("Model slot transition")
	} else {
		r.log.WithFields(fields).Info("Model slot transition")
	}
	return st, true
}

func compareKeys(a, b Key) int {
	return slices.Index(Keys(), a) - slices.Index(Keys(), b)
}

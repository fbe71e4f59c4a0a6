package model

import (
	"time"

	"CXRaide/pkg/nn"
)

// State of a model slot.
//
//	NotLoaded --Acquire--> Loading --ok--> Ready
//	Loading --fallback failed--> Failed --Acquire--> Loading
//	Failed --Rearm--> NotLoaded
type State int

const (
	StateNotLoaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time copy of a slot
type Status struct {
	Key       Key
	State     State
	Degraded  bool
	LastError error  // Why the slot failed, or why it is running degraded
	Detector  string // Name of the detector, once Ready
	Artifact  string // Path of the weights, if a real detector was loaded
	LoadedAt  time.Time
	Loads     int // Number of load attempts started
}

// slot is only ever read or written with Registry.mu held
type slot struct {
	spec     Spec
	state    State
	detector nn.Detector
	degraded bool
	lastErr  error
	artifact string
	loadedAt time.Time
	loads    int
}

func (s *slot) status() Status {
	st := Status{
		Key:       s.spec.Key,
		State:     s.state,
		Degraded:  s.degraded,
		LastError: s.lastErr,
		Artifact:  s.artifact,
		LoadedAt:  s.loadedAt,
		Loads:     s.loads,
	}
	if s.detector != nil {
		st.Detector = s.detector.Name()
	}
	return st
}

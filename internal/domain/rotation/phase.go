package rotation

import (
	"errors"
	"time"
)

type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
)

var (
	ErrInactive    = errors.New("rotation is not running")
	ErrAlreadyLive = errors.New("rotation already running")
	ErrNoPhases    = errors.New("rotation has no phases")
)

// Phase is one time-boxed segment of the demo rotation, bound to a driver.
type Phase struct {
	ID       string        `json:"id"`
	Position int           `json:"position"`
	Duration time.Duration `json:"duration"`
	DriverID string        `json:"driver_id"`
	Status   PhaseStatus   `json:"status"`
}

// Handoff records a driver transfer. Append-only; never rewritten.
type Handoff struct {
	ID      string         `json:"id"`
	FromID  string         `json:"from_id"`
	ToID    string         `json:"to_id"`
	PhaseID string         `json:"phase_id"`
	At      time.Time      `json:"at"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// Rotation holds the pure state of the demo rotation: an ordered phase
// catalog, the index of the active phase and the single next deadline. All
// timer plumbing lives in the scheduler use case; this type only answers
// transition questions.
type Rotation struct {
	Phases   []Phase
	Active   int // index into Phases, -1 when not running
	Deadline time.Time
}

func New(phases []Phase) Rotation {
	ordered := make([]Phase, len(phases))
	copy(ordered, phases)
	for i := range ordered {
		ordered[i].Position = i
		ordered[i].Status = PhasePending
	}
	return Rotation{Phases: ordered, Active: -1}
}

func (r *Rotation) Running() bool {
	return r.Active >= 0 && r.Active < len(r.Phases)
}

func (r *Rotation) ActivePhase() *Phase {
	if !r.Running() {
		return nil
	}
	return &r.Phases[r.Active]
}

// Start activates the first phase and computes its deadline from now.
func (r *Rotation) Start(now time.Time) (*Phase, error) {
	if r.Running() {
		return nil, ErrAlreadyLive
	}
	if len(r.Phases) == 0 {
		return nil, ErrNoPhases
	}
	r.Active = 0
	r.Phases[0].Status = PhaseActive
	r.Deadline = now.Add(r.Phases[0].Duration)
	return &r.Phases[0], nil
}

// Advance completes the active phase and activates its successor, recomputing
// the deadline relative to now so downstream phases shift with forced
// handoffs. The returned next is nil when the rotation just finished.
func (r *Rotation) Advance(now time.Time) (completed, next *Phase, err error) {
	if !r.Running() {
		return nil, nil, ErrInactive
	}
	current := &r.Phases[r.Active]
	current.Status = PhaseCompleted
	if r.Active == len(r.Phases)-1 {
		r.Active = -1
		r.Deadline = time.Time{}
		return current, nil, nil
	}
	r.Active++
	n := &r.Phases[r.Active]
	n.Status = PhaseActive
	r.Deadline = now.Add(n.Duration)
	return current, n, nil
}

// Extend lengthens the active phase and pushes the deadline out by d.
func (r *Rotation) Extend(d time.Duration) (*Phase, error) {
	if !r.Running() {
		return nil, ErrInactive
	}
	p := &r.Phases[r.Active]
	p.Duration += d
	r.Deadline = r.Deadline.Add(d)
	return p, nil
}

// Remaining reports time until the active phase's deadline, floored at zero.
func (r *Rotation) Remaining(now time.Time) time.Duration {
	if !r.Running() {
		return 0
	}
	left := r.Deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

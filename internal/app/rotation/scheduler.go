package rotation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"questforge/internal/app/ports"
	"questforge/internal/domain/quest"
	"questforge/internal/domain/rotation"
)

// Publisher hands scheduler events to the replication broadcaster.
type Publisher interface {
	BroadcastLocal(ctx context.Context, events []quest.DomainEvent)
}

// StatusView is the externally visible scheduler state.
type StatusView struct {
	Running          bool             `json:"running"`
	Phases           []rotation.Phase `json:"phases"`
	ActivePhase      *rotation.Phase  `json:"active_phase,omitempty"`
	RemainingSeconds int64            `json:"remaining_seconds"`
}

// Scheduler drives the demo rotation: one deadline, one timer. Every
// transition cancels and re-arms the timer, so a stale expiry can never act
// on state it no longer owns.
type Scheduler struct {
	Publisher Publisher
	Handoffs  ports.HandoffLog
	Metrics   ports.MetricsSnapshotter
	Log       zerolog.Logger
	Now       func() time.Time

	mu    sync.Mutex
	rot   rotation.Rotation
	timer *time.Timer
	gen   uint64
	ctx   context.Context
}

func NewScheduler(phases []rotation.Phase) *Scheduler {
	return &Scheduler{rot: rotation.New(phases), Now: time.Now}
}

// DefaultPhases is the stock demo rotation used when no catalog is
// configured.
func DefaultPhases() []rotation.Phase {
	return []rotation.Phase{
		{ID: "warmup", Duration: 10 * time.Minute, DriverID: "dm-aria"},
		{ID: "first-quest", Duration: 20 * time.Minute, DriverID: "dm-aria"},
		{ID: "open-table", Duration: 10 * time.Minute, DriverID: "dm-brook"},
		{ID: "finale", Duration: 5 * time.Minute, DriverID: "dm-cato"},
	}
}

// Start activates the first phase and arms the deadline timer. ctx outlives
// the call; timer expiries publish through it.
func (s *Scheduler) Start(ctx context.Context) (StatusView, error) {
	s.mu.Lock()
	now := s.Now()
	first, err := s.rot.Start(now)
	if err != nil {
		view := s.statusLocked(now)
		s.mu.Unlock()
		return view, err
	}
	s.ctx = ctx
	s.armLocked(now)
	events := []quest.DomainEvent{phaseEvent(first, now)}
	view := s.statusLocked(now)
	s.mu.Unlock()

	s.publish(ctx, events)
	return view, nil
}

// Advance forces a handoff to the next phase right now. The deadline for the
// new phase, and therefore every downstream expiry, is recomputed relative
// to now rather than the original schedule.
func (s *Scheduler) Advance(ctx context.Context) (StatusView, error) {
	return s.advance(ctx, false)
}

// Extend lengthens the active phase and pushes the deadline out without
// completing it.
func (s *Scheduler) Extend(ctx context.Context, d time.Duration) (StatusView, error) {
	s.mu.Lock()
	now := s.Now()
	phase, err := s.rot.Extend(d)
	if err != nil {
		view := s.statusLocked(now)
		s.mu.Unlock()
		return view, err
	}
	s.armLocked(now)
	events := []quest.DomainEvent{
		quest.NewEvent(quest.EventPhaseChanged, "", map[string]any{
			"phase_id":          phase.ID,
			"driver_id":         phase.DriverID,
			"status":            string(phase.Status),
			"extended_by_secs":  int64(d / time.Second),
			"remaining_seconds": int64(s.rot.Remaining(now) / time.Second),
		}, now),
	}
	view := s.statusLocked(now)
	s.mu.Unlock()

	s.publish(ctx, events)
	return view, nil
}

// Status reports the current rotation state.
func (s *Scheduler) Status() StatusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(s.Now())
}

func (s *Scheduler) advance(ctx context.Context, timed bool) (StatusView, error) {
	s.mu.Lock()
	now := s.Now()
	completed, next, err := s.rot.Advance(now)
	if err != nil {
		view := s.statusLocked(now)
		s.mu.Unlock()
		return view, err
	}

	var events []quest.DomainEvent
	if next == nil {
		s.disarmLocked()
		events = append(events, quest.NewEvent(quest.EventDemoEnded, "", map[string]any{
			"final_phase": completed.ID,
		}, now))
	} else {
		if next.DriverID != completed.DriverID {
			events = append(events, s.handoffLocked(ctx, completed, next, now))
		}
		s.armLocked(now)
		events = append(events, phaseEvent(next, now))
	}
	view := s.statusLocked(now)
	s.mu.Unlock()

	if timed {
		s.Log.Info().Str("phase", completed.ID).Msg("phase deadline reached")
	}
	s.publish(ctx, events)
	return view, nil
}

// handoffLocked records the driver transfer with a metrics snapshot taken at
// handoff time. Log append failures are not fatal to the transition.
func (s *Scheduler) handoffLocked(ctx context.Context, from, to *rotation.Phase, now time.Time) quest.DomainEvent {
	h := rotation.Handoff{
		ID:      uuid.NewString(),
		FromID:  from.DriverID,
		ToID:    to.DriverID,
		PhaseID: to.ID,
		At:      now,
	}
	if s.Metrics != nil {
		h.Metrics = s.Metrics.SnapshotMap()
	}
	if s.Handoffs != nil {
		if err := s.Handoffs.Append(ctx, h); err != nil {
			s.Log.Warn().Err(err).Str("handoff_id", h.ID).Msg("handoff append failed")
		}
	}
	return quest.NewEvent(quest.EventHandoff, "", map[string]any{
		"handoff_id": h.ID,
		"from":       h.FromID,
		"to":         h.ToID,
		"phase_id":   h.PhaseID,
	}, now)
}

// armLocked re-arms the single deadline timer. The generation counter makes
// an already-fired stale callback a no-op.
func (s *Scheduler) armLocked(now time.Time) {
	s.disarmLocked()
	s.gen++
	gen := s.gen
	remaining := s.rot.Remaining(now)
	s.timer = time.AfterFunc(remaining, func() {
		s.onDeadline(gen)
	})
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) onDeadline(gen uint64) {
	s.mu.Lock()
	stale := gen != s.gen || !s.rot.Running()
	ctx := s.ctx
	s.mu.Unlock()
	if stale {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.advance(ctx, true); err != nil {
		s.Log.Warn().Err(err).Msg("timed transition skipped")
	}
}

func (s *Scheduler) statusLocked(now time.Time) StatusView {
	phases := make([]rotation.Phase, len(s.rot.Phases))
	copy(phases, s.rot.Phases)
	view := StatusView{
		Running:          s.rot.Running(),
		Phases:           phases,
		RemainingSeconds: int64(s.rot.Remaining(now) / time.Second),
	}
	if p := s.rot.ActivePhase(); p != nil {
		active := *p
		view.ActivePhase = &active
	}
	return view
}

func (s *Scheduler) publish(ctx context.Context, events []quest.DomainEvent) {
	if s.Publisher == nil || len(events) == 0 {
		return
	}
	s.Publisher.BroadcastLocal(ctx, events)
}

func phaseEvent(p *rotation.Phase, now time.Time) quest.DomainEvent {
	return quest.NewEvent(quest.EventPhaseChanged, "", map[string]any{
		"phase_id":  p.ID,
		"driver_id": p.DriverID,
		"status":    string(p.Status),
		"position":  p.Position,
	}, now)
}

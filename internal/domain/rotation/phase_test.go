package rotation

import (
	"errors"
	"testing"
	"time"
)

func fourPhases() []Phase {
	return []Phase{
		{ID: "a", Duration: 10 * time.Minute, DriverID: "d1"},
		{ID: "b", Duration: 20 * time.Minute, DriverID: "d2"},
		{ID: "c", Duration: 10 * time.Minute, DriverID: "d2"},
		{ID: "d", Duration: 5 * time.Minute, DriverID: "d3"},
	}
}

func TestStart(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rot := New(fourPhases())

	if rot.Running() {
		t.Fatalf("new rotation must not run")
	}
	first, err := rot.Start(t0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.ID != "a" || first.Status != PhaseActive {
		t.Fatalf("unexpected first phase %+v", first)
	}
	if got, want := rot.Deadline, t0.Add(10*time.Minute); !got.Equal(want) {
		t.Fatalf("deadline %v, want %v", got, want)
	}
	if _, err := rot.Start(t0); !errors.Is(err, ErrAlreadyLive) {
		t.Fatalf("expected ErrAlreadyLive, got %v", err)
	}
}

func TestAdvance_RecomputesDeadlineFromNow(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rot := New(fourPhases())
	if _, err := rot.Start(t0); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Forced handoff three minutes in: downstream schedule shifts to now,
	// not to the original T0 grid.
	forcedAt := t0.Add(3 * time.Minute)
	completed, next, err := rot.Advance(forcedAt)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if completed.ID != "a" || completed.Status != PhaseCompleted {
		t.Fatalf("unexpected completed %+v", completed)
	}
	if next.ID != "b" || next.Status != PhaseActive {
		t.Fatalf("unexpected next %+v", next)
	}
	if got, want := rot.Deadline, forcedAt.Add(20*time.Minute); !got.Equal(want) {
		t.Fatalf("deadline %v, want %v (relative to forced handoff)", got, want)
	}
	if got := rot.Remaining(forcedAt.Add(5 * time.Minute)); got != 15*time.Minute {
		t.Fatalf("remaining %v, want 15m", got)
	}
}

func TestAdvance_FinalPhaseEndsRotation(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rot := New(fourPhases())
	if _, err := rot.Start(t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, _, err := rot.Advance(t0); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}
	completed, next, err := rot.Advance(t0)
	if err != nil {
		t.Fatalf("final Advance: %v", err)
	}
	if completed.ID != "d" || next != nil {
		t.Fatalf("final phase should complete with no successor, got completed=%+v next=%+v", completed, next)
	}
	if rot.Running() {
		t.Fatalf("rotation should stop after the final phase")
	}
	if _, _, err := rot.Advance(t0); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive after end, got %v", err)
	}
}

func TestExtend(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rot := New(fourPhases())
	if _, err := rot.Start(t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	phase, err := rot.Extend(7 * time.Minute)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if phase.Status != PhaseActive {
		t.Fatalf("extend must not complete the phase")
	}
	if phase.Duration != 17*time.Minute {
		t.Fatalf("duration %v, want 17m", phase.Duration)
	}
	if got, want := rot.Deadline, t0.Add(17*time.Minute); !got.Equal(want) {
		t.Fatalf("deadline %v, want %v", got, want)
	}

	var idle Rotation
	if _, err := idle.Extend(time.Minute); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive on idle rotation, got %v", err)
	}
}

package inmemory

import "sync"

type Snapshot struct {
	ActionTotal    uint64            `json:"action_total"`
	ActionSuccess  uint64            `json:"action_success"`
	ActionFailure  uint64            `json:"action_failure"`
	DroppedPublish uint64            `json:"dropped_publish"`
	ByActionType   map[string]uint64 `json:"by_action_type"`
	FailuresByType map[string]uint64 `json:"failures_by_action_type"`
}

// Recorder counts action outcomes and dropped publishes. Its snapshot feeds
// the ops endpoint and the metrics block embedded in handoff records.
type Recorder struct {
	mu       sync.Mutex
	success  uint64
	failure  uint64
	dropped  uint64
	byType   map[string]uint64
	failures map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byType:   map[string]uint64{},
		failures: map[string]uint64{},
	}
}

func (r *Recorder) RecordSuccess(actionType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
	r.byType[actionType]++
}

func (r *Recorder) RecordFailure(actionType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
	r.failures[actionType]++
}

func (r *Recorder) RecordDroppedPublish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Snapshot{
		ActionSuccess:  r.success,
		ActionFailure:  r.failure,
		ActionTotal:    r.success + r.failure,
		DroppedPublish: r.dropped,
		ByActionType:   make(map[string]uint64, len(r.byType)),
		FailuresByType: make(map[string]uint64, len(r.failures)),
	}
	for k, v := range r.byType {
		out.ByActionType[k] = v
	}
	for k, v := range r.failures {
		out.FailuresByType[k] = v
	}
	return out
}

// SnapshotMap flattens the snapshot for handoff records.
func (r *Recorder) SnapshotMap() map[string]any {
	snap := r.Snapshot()
	return map[string]any{
		"action_total":    snap.ActionTotal,
		"action_success":  snap.ActionSuccess,
		"action_failure":  snap.ActionFailure,
		"dropped_publish": snap.DroppedPublish,
	}
}

package ports

// ActionMetrics counts action outcomes for the ops surface and for handoff
// snapshots.
type ActionMetrics interface {
	RecordSuccess(actionType string)
	RecordFailure(actionType string)
	RecordDroppedPublish()
}

// MetricsSnapshotter exposes the current counters as a loose map so handoff
// records can embed them without importing the adapter.
type MetricsSnapshotter interface {
	SnapshotMap() map[string]any
}

package services

import (
	"sync"
	"time"

	"betascale/internal/betas"
	"betascale/pkg/contracts/events"
)

// RunBroadcaster pushes run snapshots to connected clients. The websocket
// hub satisfies it; tests substitute a capture.
type RunBroadcaster interface {
	BroadcastRunSnapshot(snapshot *events.RunSnapshot, traceID string)
}

// runTracker owns the progress snapshot of one run. All mutation happens
// under its lock, which also serializes the marshal inside the broadcast,
// so pipeline workers can report progress concurrently.
type runTracker struct {
	mu       sync.Mutex
	snapshot *events.RunSnapshot
	hub      RunBroadcaster
	traceID  string
	current  string
}

func newRunTracker(runID string, hub RunBroadcaster, traceID string) *runTracker {
	return &runTracker{
		snapshot: events.NewRunSnapshot(runID),
		hub:      hub,
		traceID:  traceID,
	}
}

func (t *runTracker) publishLocked() {
	t.snapshot.UpdatedAt = time.Now()
	if t.hub != nil {
		t.hub.BroadcastRunSnapshot(t.snapshot, t.traceID)
	}
}

func (t *runTracker) runStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot.Status = events.RunStatusRunning
	t.publishLocked()
}

func (t *runTracker) stageStarted(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startStageLocked(id, message)
	t.publishLocked()
}

func (t *runTracker) startStageLocked(id, message string) {
	if stage := t.snapshot.Stage(id); stage != nil {
		stage.Status = events.StageStatusRunning
		stage.Message = message
	}
	t.current = id
	t.snapshot.CurrentStage = id
}

func (t *runTracker) stageCompleted(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completeStageLocked(id, message)
	t.publishLocked()
}

func (t *runTracker) completeStageLocked(id, message string) {
	if stage := t.snapshot.Stage(id); stage != nil {
		stage.Status = events.StageStatusCompleted
		stage.Progress = 100
		if message != "" {
			stage.Message = message
		}
	}
	t.snapshot.Progress = t.overallLocked()
}

func (t *runTracker) stageSkipped(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stage := t.snapshot.Stage(id); stage != nil {
		stage.Status = events.StageStatusSkipped
	}
	t.publishLocked()
}

// pipelineProgress adapts betas progress callbacks onto the snapshot. The
// pipeline's stage names match the contract stage IDs, and the first rank
// callback implies standardization finished.
func (t *runTracker) pipelineProgress(stage betas.Stage, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := string(stage)
	if id == events.StageRank && t.current == events.StageStandardize {
		t.completeStageLocked(events.StageStandardize, "")
		t.startStageLocked(events.StageRank, "")
	}

	if s := t.snapshot.Stage(id); s != nil {
		if s.Status == events.StageStatusPending {
			s.Status = events.StageStatusRunning
			t.current = id
			t.snapshot.CurrentStage = id
		}
		if percent > s.Progress {
			s.Progress = percent
		}
	}
	t.snapshot.Progress = t.overallLocked()
	t.publishLocked()
}

func (t *runTracker) runCompleted(report betas.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.snapshot.Status = events.RunStatusCompleted
	t.snapshot.Progress = 100
	t.snapshot.CurrentStage = ""
	t.snapshot.CompletedAt = &now
	t.snapshot.Message = runMessage(report)
	t.publishLocked()
}

func (t *runTracker) runFailed(stageID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if stage := t.snapshot.Stage(stageID); stage != nil {
		stage.Status = events.StageStatusFailed
		stage.Error = err.Error()
	}
	t.snapshot.Status = events.RunStatusFailed
	t.snapshot.CompletedAt = &now
	t.snapshot.Error = err.Error()
	t.publishLocked()
}

func (t *runTracker) currentStage() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *runTracker) runID() string {
	return t.snapshot.RunID
}

// overallLocked averages stage progress. Skipped stages count as done so a
// preview run can still reach 100.
func (t *runTracker) overallLocked() int {
	if len(t.snapshot.Stages) == 0 {
		return 0
	}
	total := 0
	for _, stage := range t.snapshot.Stages {
		switch stage.Status {
		case events.StageStatusCompleted, events.StageStatusSkipped:
			total += 100
		default:
			total += stage.Progress
		}
	}
	return total / len(t.snapshot.Stages)
}

package models

import (
	"context"
	"sync"
	"time"
)

type WorkflowState string

const (
	StateIdle      WorkflowState = "idle"
	StateAnalyzing WorkflowState = "analyzing"
	StateSucceeded WorkflowState = "succeeded"
	StateFailed    WorkflowState = "failed"
)

// GenericFailureMessage is shown when a failure carries no reason.
const GenericFailureMessage = "There was an error analyzing your image. Please try again."

// Notice is a one-shot notification raised by a state transition.
type Notice struct {
	Title       string
	Description string
	Destructive bool
}

// Run identifies one accepted analysis. Completions carrying a stale run
// ID are ignored.
type Run struct {
	ID    uint64
	Ctx   context.Context
	Image *SelectedImage
}

// WorkflowSnapshot is an immutable copy of a workflow's state.
type WorkflowSnapshot struct {
	State      WorkflowState
	Image      *SelectedImage
	Result     *NutritionResult
	Confidence int
	Failure    string
	UpdatedAt  time.Time
}

// Workflow is the per-session analysis state machine:
//
//	Idle -> Analyzing -> Succeeded | Failed -> (reset) -> Idle
//
// A selection while Analyzing is rejected with ErrAnalysisInProgress.
type Workflow struct {
	mu sync.Mutex

	state      WorkflowState
	image      *SelectedImage
	result     *NutritionResult
	confidence int
	failure    string
	notice     *Notice

	run       uint64
	cancel    context.CancelFunc
	updatedAt time.Time

	now func() time.Time
}

func NewWorkflow() *Workflow {
	return newWorkflow(time.Now)
}

func newWorkflow(now func() time.Time) *Workflow {
	return &Workflow{
		state:     StateIdle,
		now:       now,
		updatedAt: now(),
	}
}

// Begin moves the workflow to Analyzing for img. The returned run carries a
// context that is cancelled on reset or once the run completes.
func (w *Workflow) Begin(parent context.Context, img *SelectedImage) (*Run, error) {
	if img == nil {
		return nil, ErrNoImageSelected
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateAnalyzing {
		return nil, ErrAnalysisInProgress
	}

	ctx, cancel := context.WithCancel(parent)
	w.run++
	w.cancel = cancel
	w.state = StateAnalyzing
	w.image = img
	w.result = nil
	w.confidence = 0
	w.failure = ""
	w.notice = nil
	w.updatedAt = w.now()

	return &Run{ID: w.run, Ctx: ctx, Image: img}, nil
}

// Succeed stores result for run. It returns false when the run has been
// superseded by a reset or a newer selection.
func (w *Workflow) Succeed(runID uint64, result *NutritionResult, confidence int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.currentLocked(runID) {
		return false
	}
	w.finishLocked()
	w.state = StateSucceeded
	w.result = result
	w.confidence = confidence
	w.notice = &Notice{
		Title:       "Analysis Complete!",
		Description: "Your meal nutrition has been analyzed successfully.",
	}
	return true
}

// Fail records reason for run. An empty reason becomes GenericFailureMessage.
func (w *Workflow) Fail(runID uint64, reason string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.currentLocked(runID) {
		return false
	}
	if reason == "" {
		reason = GenericFailureMessage
	}
	w.finishLocked()
	w.state = StateFailed
	w.result = nil
	w.failure = reason
	w.notice = &Notice{
		Title:       "Analysis Failed",
		Description: reason,
		Destructive: true,
	}
	return true
}

// Reset discards the image and result and returns to Idle. An in-flight
// run is cancelled and its completion will be ignored.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.run++
	w.state = StateIdle
	w.image = nil
	w.result = nil
	w.confidence = 0
	w.failure = ""
	w.notice = nil
	w.updatedAt = w.now()
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WorkflowSnapshot{
		State:      w.state,
		Image:      w.image,
		Result:     w.result,
		Confidence: w.confidence,
		Failure:    w.failure,
		UpdatedAt:  w.updatedAt,
	}
}

// State returns the current state.
func (w *Workflow) State() WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// TakeNotice returns the pending notice, if any, and clears it.
func (w *Workflow) TakeNotice() *Notice {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.notice
	w.notice = nil
	return n
}

// idleSince reports when the workflow last changed and whether it is
// safe to evict (nothing in flight).
func (w *Workflow) idleSince() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt, w.state != StateAnalyzing
}

func (w *Workflow) touch() {
	w.mu.Lock()
	w.updatedAt = w.now()
	w.mu.Unlock()
}

func (w *Workflow) currentLocked(runID uint64) bool {
	return w.state == StateAnalyzing && w.run == runID
}

func (w *Workflow) finishLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.updatedAt = w.now()
}

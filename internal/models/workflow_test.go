package models

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testImage() *SelectedImage {
	return &SelectedImage{Filename: "meal.jpg", MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func TestWorkflow_SuccessPath(t *testing.T) {
	wf := NewWorkflow()
	if wf.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", wf.State())
	}

	run, err := wf.Begin(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if wf.State() != StateAnalyzing {
		t.Fatalf("state after Begin = %s, want analyzing", wf.State())
	}

	result := &NutritionResult{Calories: 520, Protein: 30, Carbs: 60, Fat: 18, Shape: ShapeFlat}
	if !wf.Succeed(run.ID, result, 93) {
		t.Fatal("Succeed() returned false for current run")
	}

	snap := wf.Snapshot()
	if snap.State != StateSucceeded {
		t.Errorf("state = %s, want succeeded", snap.State)
	}
	if snap.Result != result || snap.Confidence != 93 {
		t.Errorf("snapshot = %+v, want stored result and confidence 93", snap)
	}
	if run.Ctx.Err() == nil {
		t.Error("run context should be cancelled once the run completes")
	}

	n := wf.TakeNotice()
	if n == nil || n.Title != "Analysis Complete!" || n.Destructive {
		t.Errorf("notice = %+v, want success notice", n)
	}
	if wf.TakeNotice() != nil {
		t.Error("notice should only be delivered once")
	}
}

func TestWorkflow_FailurePath(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		want   string
	}{
		{"with reason", "API request failed: 500", "API request failed: 500"},
		{"generic", "", GenericFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := NewWorkflow()
			run, err := wf.Begin(context.Background(), testImage())
			if err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			if !wf.Fail(run.ID, tt.reason) {
				t.Fatal("Fail() returned false for current run")
			}

			snap := wf.Snapshot()
			if snap.State != StateFailed {
				t.Errorf("state = %s, want failed", snap.State)
			}
			if snap.Result != nil {
				t.Error("failed workflow should not hold a result")
			}
			if snap.Failure != tt.want {
				t.Errorf("Failure = %q, want %q", snap.Failure, tt.want)
			}
			n := wf.TakeNotice()
			if n == nil || !n.Destructive || n.Description != tt.want {
				t.Errorf("notice = %+v, want destructive notice with %q", n, tt.want)
			}
		})
	}
}

func TestWorkflow_RejectsOverlappingAnalysis(t *testing.T) {
	wf := NewWorkflow()
	first, err := wf.Begin(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	_, err = wf.Begin(context.Background(), testImage())
	if !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("second Begin() error = %v, want ErrAnalysisInProgress", err)
	}

	if first.Ctx.Err() != nil {
		t.Error("rejected selection must not cancel the in-flight run")
	}
	if !wf.Succeed(first.ID, &NutritionResult{Shape: ShapeFlat}, 90) {
		t.Error("first run should still complete")
	}
}

func TestWorkflow_BeginRequiresImage(t *testing.T) {
	wf := NewWorkflow()
	if _, err := wf.Begin(context.Background(), nil); !errors.Is(err, ErrNoImageSelected) {
		t.Errorf("Begin(nil) error = %v, want ErrNoImageSelected", err)
	}
	if wf.State() != StateIdle {
		t.Errorf("state = %s, want idle", wf.State())
	}
}

func TestWorkflow_ResetFromTerminalStates(t *testing.T) {
	finish := map[string]func(*Workflow, uint64){
		"succeeded": func(wf *Workflow, id uint64) {
			wf.Succeed(id, &NutritionResult{Calories: 1, Shape: ShapeFlat}, 95)
		},
		"failed": func(wf *Workflow, id uint64) {
			wf.Fail(id, "boom")
		},
	}

	for name, fn := range finish {
		t.Run(name, func(t *testing.T) {
			wf := NewWorkflow()
			run, err := wf.Begin(context.Background(), testImage())
			if err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			fn(wf, run.ID)

			wf.Reset()

			snap := wf.Snapshot()
			if snap.State != StateIdle {
				t.Errorf("state = %s, want idle", snap.State)
			}
			if snap.Image != nil || snap.Result != nil || snap.Failure != "" || snap.Confidence != 0 {
				t.Errorf("reset left residual data: %+v", snap)
			}
			if wf.TakeNotice() != nil {
				t.Error("reset should clear pending notices")
			}
		})
	}
}

func TestWorkflow_ResetCancelsInFlightRun(t *testing.T) {
	wf := NewWorkflow()
	run, err := wf.Begin(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	wf.Reset()

	if run.Ctx.Err() == nil {
		t.Error("reset should cancel the in-flight run")
	}
	if wf.Succeed(run.ID, &NutritionResult{Shape: ShapeFlat}, 90) {
		t.Error("late completion of a reset run must be ignored")
	}
	if wf.Fail(run.ID, "late") {
		t.Error("late failure of a reset run must be ignored")
	}
	if wf.State() != StateIdle {
		t.Errorf("state = %s, want idle", wf.State())
	}
}

func TestWorkflow_NewSelectionReplacesResult(t *testing.T) {
	wf := NewWorkflow()
	run, _ := wf.Begin(context.Background(), testImage())
	wf.Succeed(run.ID, &NutritionResult{Calories: 100, Shape: ShapeFlat}, 91)

	second := &SelectedImage{Filename: "other.png", MIMEType: "image/png", Data: []byte{1}}
	run2, err := wf.Begin(context.Background(), second)
	if err != nil {
		t.Fatalf("Begin() from succeeded error = %v", err)
	}
	if run2.ID == run.ID {
		t.Error("new run should get a fresh id")
	}

	snap := wf.Snapshot()
	if snap.Result != nil || snap.Image != second {
		t.Errorf("snapshot = %+v, want new image and no result", snap)
	}
	if wf.Succeed(run.ID, &NutritionResult{Shape: ShapeFlat}, 90) {
		t.Error("stale run id must not complete the new run")
	}
}

func TestWorkflowStore_GetAndPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewWorkflowStore(time.Hour)
	store.now = func() time.Time { return now }

	idle := store.Get("idle")
	busy := store.Get("busy")
	if store.Get("idle") != idle {
		t.Fatal("Get() should return the same workflow for a session")
	}
	if _, err := busy.Begin(context.Background(), testImage()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	now = now.Add(2 * time.Hour)

	if removed := store.Prune(); removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
	if _, ok := store.Lookup("idle"); ok {
		t.Error("expired idle session should be pruned")
	}
	if _, ok := store.Lookup("busy"); !ok {
		t.Error("session with an analysis in flight must be kept")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

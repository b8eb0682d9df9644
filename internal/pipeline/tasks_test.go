package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/txxxxz/autonote/internal/notes"
)

func TestTaskConflict(t *testing.T) {
	m := NewTaskManager(time.Hour)

	first, err := m.Begin("sess1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Begin("sess1"); !errors.Is(err, ErrTaskConflict) {
		t.Errorf("second Begin: err = %v, want ErrTaskConflict", err)
	}
	if _, err := m.Begin("sess2"); err != nil {
		t.Errorf("other session blocked: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Run(first, func(func(notes.Progress)) error { return nil })
	}()
	wg.Wait()

	if _, err := m.Begin("sess1"); err != nil {
		t.Errorf("Begin after completion: %v", err)
	}
}

func TestTaskProgressMonotonic(t *testing.T) {
	m := NewTaskManager(time.Hour)
	task, err := m.Begin("sess1")
	if err != nil {
		t.Fatal(err)
	}

	m.Run(task, func(progress func(notes.Progress)) error {
		// Sections complete out of outline order.
		for _, idx := range []int{3, 1, 2, 4} {
			progress(notes.Progress{
				Phase:  notes.PhaseSection,
				Status: notes.StatusComplete,
				Index:  idx,
				Total:  4,
			})
			snap := task.Snapshot()
			if snap.Progress < float64(idx)/4*100 && idx == 3 {
				t.Errorf("progress did not advance: %v", snap.Progress)
			}
		}
		snap := task.Snapshot()
		if snap.Progress != 100 {
			t.Errorf("progress after all completes = %v, want 100", snap.Progress)
		}
		return nil
	})

	snap := task.Snapshot()
	if snap.State != TaskCompleted {
		t.Errorf("state = %s, want %s", snap.State, TaskCompleted)
	}
}

func TestTaskProgressNeverDecreases(t *testing.T) {
	m := NewTaskManager(time.Hour)
	task, err := m.Begin("sess1")
	if err != nil {
		t.Fatal(err)
	}

	m.Run(task, func(progress func(notes.Progress)) error {
		progress(notes.Progress{Phase: notes.PhaseSection, Status: notes.StatusComplete, Index: 4, Total: 4})
		high := task.Snapshot().Progress
		progress(notes.Progress{Phase: notes.PhaseSection, Status: notes.StatusComplete, Index: 1, Total: 4})
		if got := task.Snapshot().Progress; got < high {
			t.Errorf("progress decreased from %v to %v", high, got)
		}
		return nil
	})
}

func TestTaskFailure(t *testing.T) {
	m := NewTaskManager(time.Hour)
	task, err := m.Begin("sess1")
	if err != nil {
		t.Fatal(err)
	}

	m.Run(task, func(func(notes.Progress)) error {
		return errors.New("model unavailable")
	})

	snap := task.Snapshot()
	if snap.State != TaskFailed {
		t.Errorf("state = %s, want %s", snap.State, TaskFailed)
	}
	if snap.Error == "" {
		t.Error("failed task carries no error message")
	}

	select {
	case <-task.Done():
	default:
		t.Error("Done channel not closed after failure")
	}

	// The session slot is released even on failure.
	if _, err := m.Begin("sess1"); err != nil {
		t.Errorf("Begin after failure: %v", err)
	}
}

func TestTaskEventsStreamAndClose(t *testing.T) {
	m := NewTaskManager(time.Hour)
	task, err := m.Begin("sess1")
	if err != nil {
		t.Fatal(err)
	}

	go m.Run(task, func(progress func(notes.Progress)) error {
		progress(notes.Progress{Phase: notes.PhasePrepare, Status: notes.StatusStart})
		progress(notes.Progress{Phase: notes.PhaseSectionsTotal, Total: 2})
		return nil
	})

	var phases []string
	for p := range task.Events() {
		phases = append(phases, p.Phase)
	}
	if len(phases) != 2 || phases[0] != notes.PhasePrepare {
		t.Errorf("streamed phases = %v", phases)
	}
}

func TestTaskCleanup(t *testing.T) {
	m := NewTaskManager(time.Nanosecond)
	task, err := m.Begin("sess1")
	if err != nil {
		t.Fatal(err)
	}
	m.Run(task, func(func(notes.Progress)) error { return nil })

	time.Sleep(time.Millisecond)
	m.Cleanup()
	if m.Get(task.ID) != nil {
		t.Error("finished task not evicted after TTL")
	}
}

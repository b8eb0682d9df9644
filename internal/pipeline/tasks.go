package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/txxxxz/autonote/internal/ids"
	"github.com/txxxxz/autonote/internal/notes"
)

// ErrTaskConflict is returned when a session already has a generation
// task in flight. The running task keeps its vector index; a second
// one would race on it.
var ErrTaskConflict = errors.New("a generation task is already running for this session")

// TaskState is the lifecycle state of a note-generation task.
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

const taskEventBuffer = 64

// Task tracks one asynchronous note-generation run.
type Task struct {
	mu sync.Mutex

	ID        string    `json:"task_id"`
	SessionID string    `json:"session_id"`
	State     TaskState `json:"state"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	events chan notes.Progress
	done   chan struct{}
}

// TaskSnapshot is a read-only, JSON-safe copy of task state.
type TaskSnapshot struct {
	ID        string    `json:"task_id"`
	SessionID string    `json:"session_id"`
	State     TaskState `json:"state"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the task state.
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskSnapshot{
		ID:        t.ID,
		SessionID: t.SessionID,
		State:     t.State,
		Progress:  t.Progress,
		Message:   t.Message,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// Events exposes the progress stream for SSE consumers. The channel is
// closed when the task finishes.
func (t *Task) Events() <-chan notes.Progress {
	return t.events
}

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// apply folds one progress event into the task's aggregate state.
// Section events may arrive out of outline order, so the percentage is
// monotonic: max(previous, index/total*100).
func (t *Task) apply(p notes.Progress) {
	t.mu.Lock()
	if p.Phase == notes.PhaseSection && p.Status == notes.StatusComplete && p.Total > 0 {
		pct := float64(p.Index) / float64(p.Total) * 100
		if pct > t.Progress {
			t.Progress = pct
		}
	}
	if p.Title != "" {
		t.Message = p.Title
	} else if p.Message != "" {
		t.Message = p.Message
	}
	t.UpdatedAt = time.Now()
	t.mu.Unlock()

	// A slow SSE consumer must not stall generation; drop when full.
	select {
	case t.events <- p:
	default:
	}
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	if err != nil {
		t.State = TaskFailed
		t.Error = err.Error()
	} else {
		t.State = TaskCompleted
		t.Progress = 100
	}
	t.UpdatedAt = time.Now()
	t.mu.Unlock()
	close(t.events)
	close(t.done)
}

// TaskManager owns all generation tasks and enforces the
// one-active-task-per-session invariant.
type TaskManager struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	active map[string]string // session id -> task id
	ttl    time.Duration
}

func NewTaskManager(ttl time.Duration) *TaskManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TaskManager{
		tasks:  make(map[string]*Task),
		active: make(map[string]string),
		ttl:    ttl,
	}
}

// Begin registers a queued task for the session, rejecting with
// ErrTaskConflict while another one is in flight.
func (m *TaskManager) Begin(sessionID string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.active[sessionID]; busy {
		return nil, ErrTaskConflict
	}
	task := &Task{
		ID:        ids.New("task"),
		SessionID: sessionID,
		State:     TaskQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		events:    make(chan notes.Progress, taskEventBuffer),
		done:      make(chan struct{}),
	}
	m.tasks[task.ID] = task
	m.active[sessionID] = task.ID
	return task, nil
}

// Run executes fn on the calling goroutine, feeding its progress into
// the task and releasing the session's active slot when it returns.
func (m *TaskManager) Run(task *Task, fn func(progress func(notes.Progress)) error) {
	task.mu.Lock()
	task.State = TaskRunning
	task.UpdatedAt = time.Now()
	task.mu.Unlock()

	err := fn(task.apply)

	m.mu.Lock()
	if m.active[task.SessionID] == task.ID {
		delete(m.active, task.SessionID)
	}
	m.mu.Unlock()

	task.finish(err)
}

// Get returns a task by id, or nil.
func (m *TaskManager) Get(taskID string) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[taskID]
}

// Cleanup evicts finished tasks older than the TTL.
func (m *TaskManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, task := range m.tasks {
		snap := task.Snapshot()
		if snap.State != TaskCompleted && snap.State != TaskFailed {
			continue
		}
		if now.Sub(snap.UpdatedAt) > m.ttl {
			delete(m.tasks, id)
		}
	}
}

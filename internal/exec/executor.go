package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"memstore/internal/guard"
)

// ErrUncheckedContext is returned when Execute is handed a nil or
// directly constructed memory context.
var ErrUncheckedContext = errors.New("execution requires a guard-issued memory context")

// Task is one unit of work over conflict-checked memory.
type Task struct {
	ID   string
	Name string
	Keys []string
}

// Status is the terminal state of an execution.
type Status int

const (
	Completed Status = iota
	Failed
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Result is what an execution produced.
type Result struct {
	TaskID string
	Status Status
	Output string
}

// Handler consumes a task and its conflict-checked memory. The context
// is read-only; handlers never receive raw key/value maps.
type Handler func(ctx context.Context, task Task, mem *guard.SafeMemoryContext) (string, error)

// Engine runs tasks against conflict-checked memory.
type Engine struct {
	guard   *guard.Guard
	handler Handler
	logger  *slog.Logger
}

// NewEngine creates an engine. A nil handler gets a default that reports
// which keys the task saw.
func NewEngine(g *guard.Guard, handler Handler) *Engine {
	if handler == nil {
		handler = func(_ context.Context, task Task, mem *guard.SafeMemoryContext) (string, error) {
			return fmt.Sprintf("task %s consumed keys [%s]", task.Name, strings.Join(mem.Keys(), " ")), nil
		}
	}
	return &Engine{
		guard:   g,
		handler: handler,
		logger:  slog.Default(),
	}
}

// IsKeyConflicted is an advisory pre-flight check callers may use before
// building a task. It is not a substitute for the check-then-execute path.
func (e *Engine) IsKeyConflicted(key string) (bool, error) {
	return e.guard.IsKeyConflicted(key)
}

// Execute runs one task over a guard-issued memory context. A context
// that did not come from the guard is rejected before the handler runs.
func (e *Engine) Execute(ctx context.Context, task Task, mem *guard.SafeMemoryContext) (Result, error) {
	if !mem.Valid() {
		return Result{}, ErrUncheckedContext
	}

	output, err := e.handler(ctx, task, mem)
	if err != nil {
		e.logger.Error("task failed",
			"task_id", task.ID,
			"task", task.Name,
			"error", err)
		return Result{TaskID: task.ID, Status: Failed, Output: output}, err
	}
	return Result{TaskID: task.ID, Status: Completed, Output: output}, nil
}

// TaskBuilder assembles a task stepwise. CheckConflicts must run before
// Execute; skipping it is a broken call site, not bad input, so Execute
// panics rather than returning an error.
type TaskBuilder struct {
	engine  *Engine
	name    string
	keys    []string
	opts    guard.Options
	mem     *guard.SafeMemoryContext
	checked bool
}

// NewTask starts building a task over the given keys.
func (e *Engine) NewTask(name string, keys ...string) *TaskBuilder {
	return &TaskBuilder{
		engine: e,
		name:   name,
		keys:   keys,
	}
}

// WithResolution sets the resolution options used by the check step.
func (b *TaskBuilder) WithResolution(opts guard.Options) *TaskBuilder {
	b.opts = opts
	return b
}

// CheckConflicts runs the guard over the task's keys and arms the
// builder. Failures leave the builder unarmed.
func (b *TaskBuilder) CheckConflicts(ctx context.Context) error {
	mem, err := b.engine.guard.CheckAndCreateContext(ctx, b.keys, b.opts)
	if err != nil {
		return err
	}
	b.mem = mem
	b.checked = true
	return nil
}

// Execute runs the built task. Panics if CheckConflicts has not
// succeeded on this builder.
func (b *TaskBuilder) Execute(ctx context.Context) (Result, error) {
	if !b.checked {
		panic(fmt.Sprintf("task %q executed without conflict check: call CheckConflicts first", b.name))
	}
	task := Task{
		ID:   uuid.NewString(),
		Name: b.name,
		Keys: b.keys,
	}
	return b.engine.Execute(ctx, task, b.mem)
}

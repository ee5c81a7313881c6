// Package runstore implements the durable run-state store (spec.md
// §4.10): an append-oriented record of sessions, runs, and task
// attempts that survives process restarts and backs the execution
// manager's crash-recovery requirement. The Store interface is defined
// once; four backends implement it (sqlite, postgres, bbolt, and a
// non-durable in-memory store), selected by configuration the way the
// teacher selects a cache backend via CacheConfig.Backend.
package runstore

import (
	"context"
	"errors"
	"time"
)

// RunStatus is a run's lifecycle state (spec.md §3's Run status set).
type RunStatus string

const (
	RunQueued    RunStatus = "Queued"
	RunRunning   RunStatus = "Running"
	RunCanceling RunStatus = "Canceling"
	RunCanceled  RunStatus = "Canceled"
	RunCompleted RunStatus = "Completed"
	RunFailed    RunStatus = "Failed"
)

// TaskStatus is one task record's lifecycle state, mirroring
// backend.Status without importing pkg/backend (runstore has no business
// knowing about live handles, only their terminal shape).
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskRunning   TaskStatus = "Running"
	TaskSucceeded TaskStatus = "Succeeded"
	TaskFailed    TaskStatus = "Failed"
	TaskCanceled  TaskStatus = "Canceled"
)

// Session groups the runs submitted under one CLI invocation or API call
// (spec.md §3's Session). Sessions are append-only: once created, a
// session is only ever read or have a run attributed to it.
type Session struct {
	ID        string
	Command   string
	CreatedBy string
	CreatedAt time.Time
}

// Run is one workflow/task evaluation (spec.md §3's Run).
type Run struct {
	ID          string
	SessionID   string
	Source      string
	Target      string
	Inputs      string // raw JSON
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Outputs     string // raw JSON, set once on completion
	Error       string
	OutputDir   string
}

// TaskRecord is one attempt of one call within a run (spec.md §3's Task
// record). CallPath is dotted and carries scatter indices, e.g.
// "align.2.sort".
type TaskRecord struct {
	RunID       string
	CallPath    string
	Attempt     int
	Backend     string
	Image       string
	Status      TaskStatus
	StartedAt   time.Time
	CompletedAt time.Time
	ExitCode    *int
	StdoutPath  string
	StderrPath  string
	LogSource   string
}

// LogLine is one line appended to a run's execution log (spec.md §4.10's
// append_log), tagged with the component that emitted it.
type LogLine struct {
	RunID  string
	Source string
	Line   string
	At     time.Time
}

// ListFilter narrows list_runs by session, status, or target; zero values
// mean "don't filter on this field".
type ListFilter struct {
	SessionID string
	Status    RunStatus
	Target    string
}

// ErrNotFound is returned by any lookup (run, session, task) that finds
// no matching row.
var ErrNotFound = errors.New("runstore: not found")

// Store is the append-oriented persistence interface spec.md §4.10
// defines verbatim. Every write that touches more than one field (a
// status transition plus its timestamp, an exit code plus completion
// time) must be atomic — callers rely on never observing a torn update.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	CreateRun(ctx context.Context, r Run) error
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus, at time.Time) error
	AppendLog(ctx context.Context, line LogLine) error
	RecordTask(ctx context.Context, t TaskRecord) error
	UpdateTask(ctx context.Context, runID, callPath string, attempt int, status TaskStatus, exitCode *int, completedAt time.Time) error
	SetOutputs(ctx context.Context, runID, outputsJSON string) error
	SetError(ctx context.Context, runID, message string) error
	ListRuns(ctx context.Context, filter ListFilter, limit, offset int) ([]Run, error)

	// GetRun and GetSession round out the read side the execution
	// manager's GetStatus/GetOutputs/GetSession commands need; spec.md's
	// interface lists list_runs only, but GetStatus can't be served by a
	// list scan on every poll.
	GetRun(ctx context.Context, runID string) (Run, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)

	// RecoverCrashedRuns is the crash-recovery operation: every run whose
	// status is Running when it is called is checked against isAlive and,
	// if isAlive reports false, marked Failed with "interrupted". It
	// returns the run IDs it marked failed. Opening a store does not call
	// it, and neither do the wdlrun commands.
	RecoverCrashedRuns(ctx context.Context, isAlive func(runID string) bool) ([]string, error)

	Close() error
}

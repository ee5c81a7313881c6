package runstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a non-durable Store used by in-process scenario tests
// (spec.md §8's S1-S6) and selected by runstore.backend "memory", where
// nothing needs to survive the process. It implements exactly the same
// Store interface so test code and production code exercise identical
// call sequences.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	runs     map[string]Run
	tasks    map[string]TaskRecord
	logs     []LogLine
}

// NewMemoryStore builds an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		runs:     make(map[string]Run),
		tasks:    make(map[string]TaskRecord),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateSession(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess

	return nil
}

func (s *MemoryStore) CreateRun(_ context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[r.ID] = r

	return nil
}

func (s *MemoryStore) UpdateRunStatus(_ context.Context, runID string, status RunStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}

	r.Status = status

	switch status {
	case RunCompleted, RunFailed, RunCanceled:
		r.CompletedAt = at
	case RunRunning:
		r.StartedAt = at
	}

	s.runs[runID] = r

	return nil
}

func (s *MemoryStore) AppendLog(_ context.Context, line LogLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, line)

	return nil
}

func (s *MemoryStore) RecordTask(_ context.Context, t TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[taskKey(t.RunID, t.CallPath, t.Attempt)] = t

	return nil
}

func (s *MemoryStore) UpdateTask(
	_ context.Context, runID, callPath string, attempt int, status TaskStatus, exitCode *int, completedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := taskKey(runID, callPath, attempt)

	t, ok := s.tasks[key]
	if !ok {
		return ErrNotFound
	}

	t.Status = status
	t.ExitCode = exitCode
	t.CompletedAt = completedAt
	s.tasks[key] = t

	return nil
}

func (s *MemoryStore) SetOutputs(_ context.Context, runID, outputsJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}

	r.Outputs = outputsJSON
	s.runs[runID] = r

	return nil
}

func (s *MemoryStore) SetError(_ context.Context, runID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}

	r.Error = message
	s.runs[runID] = r

	return nil
}

func (s *MemoryStore) ListRuns(_ context.Context, filter ListFilter, limit, offset int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []Run

	for _, r := range s.runs {
		if filter.SessionID != "" && r.SessionID != filter.SessionID {
			continue
		}

		if filter.Status != "" && r.Status != filter.Status {
			continue
		}

		if filter.Target != "" && r.Target != filter.Target {
			continue
		}

		all = append(all, r)
	}

	if offset >= len(all) {
		return nil, nil
	}

	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return all[offset:end], nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}

	return r, nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *MemoryStore) RecoverCrashedRuns(_ context.Context, isAlive func(runID string) bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []string

	for id, r := range s.runs {
		if r.Status != RunRunning || isAlive(id) {
			continue
		}

		r.Status = RunFailed
		r.CompletedAt = time.Now()
		r.Error = "interrupted"
		s.runs[id] = r
		failed = append(failed, id)
	}

	return failed, nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
var _ Store = (*PostgresStore)(nil)
var _ Store = (*BoltStore)(nil)

package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names, one per row kind; task records and logs are keyed under
// their run so a run's full history lives in one scan.
const (
	bucketSessions = "sessions"
	bucketRuns     = "runs"
	bucketTasks    = "task_records"
	bucketLogs     = "logs"
)

// BoltStore is the embedded, no-server Store backend for single-binary
// local use. Grounded on evalgo-org/eve's db/bolt.DB JSON-per-key helpers
// (PutJSON/GetJSON/ForEachJSON), generalized from one flat bucket per
// entity to composite keys so task_records/logs can be scanned per run.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt-backed Store at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("runstore: open bbolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketSessions, bucketRuns, bucketTasks, bucketLogs} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("runstore: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) putJSON(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *BoltStore) getJSON(bucket, key string, v any) error {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		data = tx.Bucket([]byte(bucket)).Get([]byte(key))

		return nil
	})
	if err != nil {
		return err
	}

	if data == nil {
		return ErrNotFound
	}

	return json.Unmarshal(data, v)
}

func (s *BoltStore) CreateSession(_ context.Context, sess Session) error {
	return s.putJSON(bucketSessions, sess.ID, sess)
}

func (s *BoltStore) CreateRun(_ context.Context, r Run) error {
	return s.putJSON(bucketRuns, r.ID, r)
}

func (s *BoltStore) UpdateRunStatus(_ context.Context, runID string, status RunStatus, at time.Time) error {
	return s.mutateRun(runID, func(r *Run) {
		r.Status = status

		switch status {
		case RunCompleted, RunFailed, RunCanceled:
			r.CompletedAt = at
		case RunRunning:
			r.StartedAt = at
		}
	})
}

func (s *BoltStore) AppendLog(_ context.Context, line LogLine) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketLogs))

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(line)
		if err != nil {
			return err
		}

		return b.Put(logKey(line.RunID, seq), data)
	})
}

func (s *BoltStore) RecordTask(_ context.Context, t TaskRecord) error {
	return s.putJSON(bucketTasks, taskKey(t.RunID, t.CallPath, t.Attempt), t)
}

func (s *BoltStore) UpdateTask(
	_ context.Context, runID, callPath string, attempt int, status TaskStatus, exitCode *int, completedAt time.Time,
) error {
	key := taskKey(runID, callPath, attempt)

	var t TaskRecord
	if err := s.getJSON(bucketTasks, key, &t); err != nil {
		return err
	}

	t.Status = status
	t.ExitCode = exitCode
	t.CompletedAt = completedAt

	return s.putJSON(bucketTasks, key, t)
}

func (s *BoltStore) SetOutputs(_ context.Context, runID, outputsJSON string) error {
	return s.mutateRun(runID, func(r *Run) { r.Outputs = outputsJSON })
}

func (s *BoltStore) SetError(_ context.Context, runID, message string) error {
	return s.mutateRun(runID, func(r *Run) { r.Error = message })
}

func (s *BoltStore) mutateRun(runID string, fn func(r *Run)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))

		data := b.Get([]byte(runID))
		if data == nil {
			return ErrNotFound
		}

		var r Run
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}

		fn(&r)

		updated, err := json.Marshal(r)
		if err != nil {
			return err
		}

		return b.Put([]byte(runID), updated)
	})
}

func (s *BoltStore) ListRuns(_ context.Context, filter ListFilter, limit, offset int) ([]Run, error) {
	var all []Run

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketRuns)).ForEach(func(_, v []byte) error {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}

			if filter.SessionID != "" && r.SessionID != filter.SessionID {
				return nil
			}

			if filter.Status != "" && r.Status != filter.Status {
				return nil
			}

			if filter.Target != "" && r.Target != filter.Target {
				return nil
			}

			all = append(all, r)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Newest first, matching the sqlite/postgres backends' ORDER BY started_at DESC.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].StartedAt.After(all[j-1].StartedAt); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	if offset >= len(all) {
		return nil, nil
	}

	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}

	return all[offset:end], nil
}

func (s *BoltStore) GetRun(_ context.Context, runID string) (Run, error) {
	var r Run

	err := s.getJSON(bucketRuns, runID, &r)

	return r, err
}

func (s *BoltStore) GetSession(_ context.Context, sessionID string) (Session, error) {
	var sess Session

	err := s.getJSON(bucketSessions, sessionID, &sess)

	return sess, err
}

func (s *BoltStore) RecoverCrashedRuns(ctx context.Context, isAlive func(runID string) bool) ([]string, error) {
	runs, err := s.ListRuns(ctx, ListFilter{Status: RunRunning}, 0, 0)
	if err != nil {
		return nil, err
	}

	var failed []string

	for _, r := range runs {
		if isAlive(r.ID) {
			continue
		}

		if err := s.mutateRun(r.ID, func(run *Run) {
			run.Status = RunFailed
			run.CompletedAt = time.Now()
			run.Error = "interrupted"
		}); err != nil {
			return failed, err
		}

		failed = append(failed, r.ID)
	}

	return failed, nil
}

func taskKey(runID, callPath string, attempt int) string {
	return fmt.Sprintf("%s/%s/%d", runID, callPath, attempt)
}

func logKey(runID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s/%020d", runID, seq))
}

package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sessionRow, runRow, and taskRow are the gorm-mapped row shapes. They
// mirror Session/Run/TaskRecord field-for-field rather than embedding
// gorm.Model, since runstore's IDs are caller-supplied UUIDs, not
// auto-increment primary keys — grounded on evalgo-org/eve's db/postgres.go
// RabbitLog model for the connection-pool setup, diverging from its
// embedded gorm.Model since this schema's primary keys aren't surrogate.
type sessionRow struct {
	ID        string `gorm:"primaryKey"`
	Command   string
	CreatedBy string
	CreatedAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type runRow struct {
	ID          string `gorm:"primaryKey"`
	SessionID   string `gorm:"index"`
	Source      string
	Target      string
	Inputs      string
	Status      string `gorm:"index"`
	StartedAt   time.Time
	CompletedAt time.Time
	Outputs     string
	Error       string
	OutputDir   string
}

func (runRow) TableName() string { return "runs" }

type taskRow struct {
	RunID       string `gorm:"primaryKey"`
	CallPath    string `gorm:"primaryKey"`
	Attempt     int    `gorm:"primaryKey"`
	Backend     string
	Image       string
	Status      string
	StartedAt   time.Time
	CompletedAt time.Time
	ExitCode    *int
	StdoutPath  string
	StderrPath  string
	LogSource   string
}

func (taskRow) TableName() string { return "task_records" }

type logRow struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	RunID  string `gorm:"index"`
	Source string
	Line   string
	At     time.Time
}

func (logRow) TableName() string { return "logs" }

// PostgresStore is the durable multi-writer backend, for shared
// deployments where more than one wdlrun process shares run state.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the runstore schema.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("runstore: open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("runstore: postgres handle: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&sessionRow{}, &runRow{}, &taskRow{}, &logRow{}); err != nil {
		return nil, fmt.Errorf("runstore: migrate: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess Session) error {
	return s.db.WithContext(ctx).Create(&sessionRow{
		ID: sess.ID, Command: sess.Command, CreatedBy: sess.CreatedBy, CreatedAt: sess.CreatedAt,
	}).Error
}

func (s *PostgresStore) CreateRun(ctx context.Context, r Run) error {
	return s.db.WithContext(ctx).Create(&runRow{
		ID: r.ID, SessionID: r.SessionID, Source: r.Source, Target: r.Target, Inputs: r.Inputs,
		Status: string(r.Status), StartedAt: r.StartedAt, OutputDir: r.OutputDir,
	}).Error
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status RunStatus, at time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": string(status)}

		switch status {
		case RunCompleted, RunFailed, RunCanceled:
			updates["completed_at"] = at
		case RunRunning:
			updates["started_at"] = at
		}

		return tx.WithContext(ctx).Model(&runRow{}).Where("id = ?", runID).Updates(updates).Error
	})
}

func (s *PostgresStore) AppendLog(ctx context.Context, line LogLine) error {
	return s.db.WithContext(ctx).Create(&logRow{RunID: line.RunID, Source: line.Source, Line: line.Line, At: line.At}).Error
}

func (s *PostgresStore) RecordTask(ctx context.Context, t TaskRecord) error {
	return s.db.WithContext(ctx).Create(&taskRow{
		RunID: t.RunID, CallPath: t.CallPath, Attempt: t.Attempt, Backend: t.Backend,
		Image: t.Image, Status: string(t.Status), StartedAt: t.StartedAt,
	}).Error
}

func (s *PostgresStore) UpdateTask(
	ctx context.Context, runID, callPath string, attempt int, status TaskStatus, exitCode *int, completedAt time.Time,
) error {
	return s.db.WithContext(ctx).Model(&taskRow{}).
		Where("run_id = ? AND call_path = ? AND attempt = ?", runID, callPath, attempt).
		Updates(map[string]any{"status": string(status), "exit_code": exitCode, "completed_at": completedAt}).Error
}

func (s *PostgresStore) SetOutputs(ctx context.Context, runID, outputsJSON string) error {
	return s.db.WithContext(ctx).Model(&runRow{}).Where("id = ?", runID).Update("outputs", outputsJSON).Error
}

func (s *PostgresStore) SetError(ctx context.Context, runID, message string) error {
	return s.db.WithContext(ctx).Model(&runRow{}).Where("id = ?", runID).Update("error", message).Error
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter ListFilter, limit, offset int) ([]Run, error) {
	q := s.db.WithContext(ctx).Model(&runRow{})

	if filter.SessionID != "" {
		q = q.Where("session_id = ?", filter.SessionID)
	}

	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	if filter.Target != "" {
		q = q.Where("target = ?", filter.Target)
	}

	if limit <= 0 {
		limit = -1 // gorm drops the LIMIT clause for -1.
	}

	var rows []runRow

	if err := q.Order("started_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Run, len(rows))
	for i, row := range rows {
		out[i] = runFromRow(row)
	}

	return out, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (Run, error) {
	var row runRow

	err := s.db.WithContext(ctx).First(&row, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, ErrNotFound
	}

	if err != nil {
		return Run{}, err
	}

	return runFromRow(row), nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (Session, error) {
	var row sessionRow

	err := s.db.WithContext(ctx).First(&row, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNotFound
	}

	if err != nil {
		return Session{}, err
	}

	return Session{ID: row.ID, Command: row.Command, CreatedBy: row.CreatedBy, CreatedAt: row.CreatedAt}, nil
}

func (s *PostgresStore) RecoverCrashedRuns(ctx context.Context, isAlive func(runID string) bool) ([]string, error) {
	var running []runRow

	if err := s.db.WithContext(ctx).Where("status = ?", string(RunRunning)).Find(&running).Error; err != nil {
		return nil, err
	}

	var failed []string

	for _, row := range running {
		if isAlive(row.ID) {
			continue
		}

		now := time.Now()

		if err := s.db.Transaction(func(tx *gorm.DB) error {
			return tx.WithContext(ctx).Model(&runRow{}).Where("id = ?", row.ID).
				Updates(map[string]any{"status": string(RunFailed), "completed_at": now, "error": "interrupted"}).Error
		}); err != nil {
			return failed, err
		}

		failed = append(failed, row.ID)
	}

	return failed, nil
}

func runFromRow(row runRow) Run {
	return Run{
		ID: row.ID, SessionID: row.SessionID, Source: row.Source, Target: row.Target, Inputs: row.Inputs,
		Status: RunStatus(row.Status), StartedAt: row.StartedAt, CompletedAt: row.CompletedAt,
		Outputs: row.Outputs, Error: row.Error, OutputDir: row.OutputDir,
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"launcherd/internal/fault"
	"launcherd/internal/model"

	_ "modernc.org/sqlite"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
    id          INTEGER PRIMARY KEY,
    title_id    TEXT NOT NULL,
    operation   TEXT NOT NULL,
    description TEXT NOT NULL,
    status      TEXT NOT NULL,
    progress    REAL NOT NULL DEFAULT 0,
    error       TEXT,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME
)`

const createStatusEventsTable = `
CREATE TABLE IF NOT EXISTS status_events (
    event_id   TEXT PRIMARY KEY,
    title_id   TEXT NOT NULL,
    state      TEXT NOT NULL,
    progress   INTEGER,
    message    TEXT,
    created_at DATETIME NOT NULL
)`

const createStatusEventsIndex = `
CREATE INDEX IF NOT EXISTS idx_status_events_title
    ON status_events (title_id, created_at)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createTasksTable, createStatusEventsTable, createStatusEventsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migration: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask inserts a new task record.
func (s *SQLiteStore) CreateTask(ctx context.Context, rec *model.TaskRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (
			id, title_id, operation, description, status, progress,
			error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TaskID, rec.TitleID, rec.Operation, rec.Description, rec.Status,
		rec.Progress, rec.Error, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// FinishTask records a task's terminal status, final progress, and error
// message, and stamps finished_at.
func (s *SQLiteStore) FinishTask(ctx context.Context, id model.TaskID, status string, progress float64, errMsg string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, progress = ?, error = ?, finished_at = ? WHERE id = ?",
		status, progress, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fault.ErrNotFound
	}
	return nil
}

// GetTask retrieves a task record by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id model.TaskID) (*model.TaskRecord, error) {
	rec := &model.TaskRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title_id, operation, description, status, progress,
			error, started_at, finished_at
		FROM tasks WHERE id = ?`, id,
	).Scan(
		&rec.TaskID, &rec.TitleID, &rec.Operation, &rec.Description, &rec.Status,
		&rec.Progress, &rec.Error, &rec.StartedAt, &rec.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return rec, nil
}

// ListTasks returns a paginated list of task records ordered by start time
// descending, along with the total count.
func (s *SQLiteStore) ListTasks(ctx context.Context, limit, offset int) ([]*model.TaskRecord, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, title_id, operation, description, status, progress,
			error, started_at, finished_at
		FROM tasks ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var records []*model.TaskRecord
	for rows.Next() {
		rec := &model.TaskRecord{}
		if err := rows.Scan(
			&rec.TaskID, &rec.TitleID, &rec.Operation, &rec.Description, &rec.Status,
			&rec.Progress, &rec.Error, &rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", err)
	}

	return records, total, nil
}

// InsertStatusEvent appends one status transition to the event log.
func (s *SQLiteStore) InsertStatusEvent(ctx context.Context, update model.StatusUpdate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO status_events (event_id, title_id, state, progress, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		update.EventID, update.TitleID, update.State, update.Progress, update.Message, update.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}

// ListStatusEvents returns the most recent events for a title, oldest first.
func (s *SQLiteStore) ListStatusEvents(ctx context.Context, titleID string, limit int) ([]model.StatusUpdate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, title_id, state, progress, message, created_at
		FROM (
			SELECT event_id, title_id, state, progress, message, created_at
			FROM status_events WHERE title_id = ?
			ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`, titleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	defer rows.Close()

	var events []model.StatusUpdate
	for rows.Next() {
		var u model.StatusUpdate
		if err := rows.Scan(&u.EventID, &u.TitleID, &u.State, &u.Progress, &u.Message, &u.Timestamp); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}
		events = append(events, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status events: %w", err)
	}

	return events, nil
}

// RecordStart lets the store act as the manager's history recorder.
func (s *SQLiteStore) RecordStart(taskID model.TaskID, titleID, operation, description string) error {
	return s.CreateTask(context.Background(), &model.TaskRecord{
		TaskID:      taskID,
		TitleID:     titleID,
		Operation:   operation,
		Description: description,
		Status:      model.TaskPending,
		StartedAt:   time.Now().UTC(),
	})
}

// RecordFinish completes the history entry started by RecordStart.
func (s *SQLiteStore) RecordFinish(taskID model.TaskID, status string, progress float64, errMsg string) error {
	return s.FinishTask(context.Background(), taskID, status, progress, errMsg)
}

// EventRecorder is a status hub listener that mirrors every published
// update into the event log.
type EventRecorder struct {
	store  Store
	logger *slog.Logger
}

// NewEventRecorder creates a listener persisting updates to the store.
func NewEventRecorder(store Store, logger *slog.Logger) *EventRecorder {
	return &EventRecorder{store: store, logger: logger}
}

// OnStatusUpdate persists the update. Failures are logged, never propagated;
// the event log is best effort.
func (r *EventRecorder) OnStatusUpdate(update model.StatusUpdate) {
	if err := r.store.InsertStatusEvent(context.Background(), update); err != nil {
		r.logger.Warn("failed to persist status event",
			"title_id", update.TitleID, "state", update.State, "error", err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/catsurvey/internal/repository/models"
)

// TaskLogRepository persists cron task log lines.
type TaskLogRepository struct {
	db *sql.DB
}

func NewTaskLogRepository(db *sql.DB) *TaskLogRepository {
	return &TaskLogRepository{db: db}
}

// AppendTaskLogs writes all entries in one transaction.
func (r *TaskLogRepository) AppendTaskLogs(ctx context.Context, entries []models.TaskLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin AppendTaskLogs: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cron_task_logs (run_id, task, level, volume, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare AppendTaskLogs: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.RunID, e.Task, e.Level, e.Volume, e.Content, formatTime(e.CreatedAt)); err != nil {
			return fmt.Errorf("exec AppendTaskLogs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit AppendTaskLogs: %w", err)
	}
	return nil
}

func (r *TaskLogRepository) ListTaskLogs(ctx context.Context, runID string) ([]models.TaskLogEntry, error) {
	const query = `
		SELECT run_id, task, level, volume, content, created_at
		FROM cron_task_logs
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query ListTaskLogs: %w", err)
	}
	defer rows.Close()

	var entries []models.TaskLogEntry
	for rows.Next() {
		var (
			e       models.TaskLogEntry
			created string
		)
		if err := rows.Scan(&e.RunID, &e.Task, &e.Level, &e.Volume, &e.Content, &created); err != nil {
			return nil, fmt.Errorf("scan ListTaskLogs row: %w", err)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan ListTaskLogs row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListTaskLogs: %w", err)
	}
	return entries, nil
}

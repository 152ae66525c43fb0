package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fepa-project/expense-ocr/constants"
	"github.com/fepa-project/expense-ocr/internal/common"
	"github.com/fepa-project/expense-ocr/internal/entity"
)

// OpenSQLite opens (and bootstraps) a SQLite job store. Used for local
// development and tests; production runs on Postgres.
func OpenSQLite(path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ocr_jobs (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  file_url TEXT NOT NULL,
  status TEXT NOT NULL,
  result_json TEXT,
  error_message TEXT,
  created_at INTEGER NOT NULL,
  completed_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_ocr_jobs_user_created ON ocr_jobs (user_id, created_at DESC);
`); err != nil {
		return nil, err
	}
	logger.Info("sqlite job store ready", "path", path)
	return db, nil
}

type sqliteJobRepo struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteJobRepository returns the SQLite-backed job store.
func NewSQLiteJobRepository(db *sql.DB, log *slog.Logger) JobRepository {
	return &sqliteJobRepo{db: db, log: log}
}

func (r *sqliteJobRepo) Create(ctx context.Context, job *entity.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ocr_jobs (id, user_id, file_url, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		job.ID.String(), job.UserID, job.FileURL, string(job.Status), job.CreatedAt.UnixNano(),
	)
	if err != nil {
		r.log.Error("ocr_job create failed", "job_id", job.ID, "err", err)
		return err
	}
	r.log.Info("ocr_job created", "job_id", job.ID, "user_id", job.UserID)
	return nil
}

func (r *sqliteJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, file_url, status, result_json, error_message, created_at, completed_at
		 FROM ocr_jobs WHERE id = ?`, id.String())
	job, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ocr job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.log.Error("ocr_job get failed", "job_id", id, "err", err)
		return nil, err
	}
	return job, nil
}

func (r *sqliteJobRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ocr_jobs SET status = ? WHERE id = ? AND status = ?`,
		string(constants.JobStatusProcessing), id.String(), string(constants.JobStatusQueued),
	)
	if err != nil {
		r.log.Error("ocr_job mark processing failed", "job_id", id, "err", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		job, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("ocr job %s already %s: %w", id, job.Status, common.ErrTerminal)
	}
	r.log.Info("ocr_job processing", "job_id", id)
	return nil
}

func (r *sqliteJobRepo) FinishSuccess(ctx context.Context, id uuid.UUID, resultJSON []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ocr_jobs
		 SET status = ?, result_json = ?, error_message = NULL, completed_at = ?
		 WHERE id = ?`,
		string(constants.JobStatusCompleted), string(resultJSON), time.Now().UTC().UnixNano(), id.String(),
	)
	if err != nil {
		r.log.Error("ocr_job finish(completed) failed", "job_id", id, "err", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ocr job %s: %w", id, common.ErrNotFound)
	}
	r.log.Info("ocr_job finished (completed)", "job_id", id)
	return nil
}

func (r *sqliteJobRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ocr_jobs
		 SET status = ?, error_message = ?, completed_at = ?
		 WHERE id = ?`,
		string(constants.JobStatusFailed), message, time.Now().UTC().UnixNano(), id.String(),
	)
	if err != nil {
		r.log.Error("ocr_job finish(failed) failed", "job_id", id, "err", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ocr job %s: %w", id, common.ErrNotFound)
	}
	r.log.Warn("ocr_job finished (failed)", "job_id", id, "error", message)
	return nil
}

func (r *sqliteJobRepo) List(ctx context.Context, filter ListFilter) ([]*entity.Job, int, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	where := `WHERE user_id = ?`
	args := []any{filter.UserID}
	if filter.Status != nil {
		where += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ocr_jobs `+where, args...).Scan(&total); err != nil {
		r.log.Error("ocr_job count failed", "user_id", filter.UserID, "err", err)
		return nil, 0, err
	}

	query := `SELECT id, user_id, file_url, status, result_json, error_message, created_at, completed_at
		 FROM ocr_jobs ` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("ocr_job list failed", "user_id", filter.UserID, "err", err)
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []*entity.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

func scanSQLiteJob(row rowScanner) (*entity.Job, error) {
	var (
		idStr, userID, fileURL, status string
		resultJSON, errorMessage       sql.NullString
		createdNs                      int64
		completedNs                    sql.NullInt64
	)
	if err := row.Scan(&idStr, &userID, &fileURL, &status,
		&resultJSON, &errorMessage, &createdNs, &completedNs); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	job := &entity.Job{
		ID:        id,
		UserID:    userID,
		FileURL:   fileURL,
		Status:    constants.JobStatus(status),
		CreatedAt: time.Unix(0, createdNs).UTC(),
	}
	if resultJSON.Valid {
		job.ResultJSON = []byte(resultJSON.String)
	}
	if errorMessage.Valid {
		msg := errorMessage.String
		job.ErrorMessage = &msg
	}
	if completedNs.Valid {
		t := time.Unix(0, completedNs.Int64).UTC()
		job.CompletedAt = &t
	}
	return job, nil
}

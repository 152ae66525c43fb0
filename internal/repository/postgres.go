package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fepa-project/expense-ocr/constants"
	"github.com/fepa-project/expense-ocr/internal/common"
	"github.com/fepa-project/expense-ocr/internal/entity"
)

type postgresJobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewJobRepository returns the Postgres-backed job store.
func NewJobRepository(pool *pgxpool.Pool, log *slog.Logger) JobRepository {
	return &postgresJobRepo{pool: pool, log: log}
}

const jobColumns = `id, user_id, file_url, status, result_json, error_message, created_at, completed_at`

func (r *postgresJobRepo) Create(ctx context.Context, job *entity.Job) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ocr_jobs (id, user_id, file_url, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.UserID, job.FileURL, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		r.log.Error("ocr_job create failed", "job_id", job.ID, "err", err)
		return err
	}
	r.log.Info("ocr_job created", "job_id", job.ID, "user_id", job.UserID)
	return nil
}

func (r *postgresJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM ocr_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ocr job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.log.Error("ocr_job get failed", "job_id", id, "err", err)
		return nil, err
	}
	return job, nil
}

func (r *postgresJobRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ocr_jobs SET status = $2
		 WHERE id = $1 AND status = $3`,
		id, string(constants.JobStatusProcessing), string(constants.JobStatusQueued),
	)
	if err != nil {
		r.log.Error("ocr_job mark processing failed", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		job, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("ocr job %s already %s: %w", id, job.Status, common.ErrTerminal)
	}
	r.log.Info("ocr_job processing", "job_id", id)
	return nil
}

func (r *postgresJobRepo) FinishSuccess(ctx context.Context, id uuid.UUID, resultJSON []byte) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ocr_jobs
		 SET status = $2, result_json = $3, error_message = NULL, completed_at = $4
		 WHERE id = $1`,
		id, string(constants.JobStatusCompleted), resultJSON, time.Now().UTC(),
	)
	if err != nil {
		r.log.Error("ocr_job finish(completed) failed", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ocr job %s: %w", id, common.ErrNotFound)
	}
	r.log.Info("ocr_job finished (completed)", "job_id", id)
	return nil
}

func (r *postgresJobRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ocr_jobs
		 SET status = $2, error_message = $3, completed_at = $4
		 WHERE id = $1`,
		id, string(constants.JobStatusFailed), message, time.Now().UTC(),
	)
	if err != nil {
		r.log.Error("ocr_job finish(failed) failed", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ocr job %s: %w", id, common.ErrNotFound)
	}
	r.log.Warn("ocr_job finished (failed)", "job_id", id, "error", message)
	return nil
}

func (r *postgresJobRepo) List(ctx context.Context, filter ListFilter) ([]*entity.Job, int, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	where := `WHERE user_id = $1`
	args := []any{filter.UserID}
	if filter.Status != nil {
		where += ` AND status = $2`
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ocr_jobs `+where, args...).Scan(&total); err != nil {
		r.log.Error("ocr_job count failed", "user_id", filter.UserID, "err", err)
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM ocr_jobs %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("ocr_job list failed", "user_id", filter.UserID, "err", err)
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []*entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.Job, error) {
	var (
		job        entity.Job
		status     string
		resultJSON []byte
	)
	err := row.Scan(&job.ID, &job.UserID, &job.FileURL, &status,
		&resultJSON, &job.ErrorMessage, &job.CreatedAt, &job.CompletedAt)
	if err != nil {
		return nil, err
	}
	job.Status = constants.JobStatus(status)
	job.ResultJSON = resultJSON
	return &job, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return page, limit
}

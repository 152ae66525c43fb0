package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fepa-project/expense-ocr/constants"
	"github.com/fepa-project/expense-ocr/internal/entity"
)

// ListFilter narrows a history query to one owner, optionally one status.
type ListFilter struct {
	UserID string
	Status *constants.JobStatus
	Page   int // 1-based
	Limit  int
}

// JobRepository is the durable keyed record of job state.
//
// Status writes follow the lifecycle queued -> processing -> completed|failed.
// MarkProcessing claims a queued row and refuses anything else, so a late
// duplicate trigger can neither double-process a job nor resurrect a finished
// one. FinishSuccess/FinishFailure are last-writer-wins within a single
// processing run: a publish failure after a successful result write still
// overwrites the row to failed.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	FinishSuccess(ctx context.Context, id uuid.UUID, resultJSON []byte) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
	List(ctx context.Context, filter ListFilter) ([]*entity.Job, int, error)
}

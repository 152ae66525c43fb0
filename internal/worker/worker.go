// Package worker runs the OCR pipeline for queued jobs: fetch the image,
// recognize text, parse expense fields, persist the result, publish the
// completion event.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fepa-project/expense-ocr/internal/common"
	"github.com/fepa-project/expense-ocr/internal/events"
	"github.com/fepa-project/expense-ocr/internal/expense"
	"github.com/fepa-project/expense-ocr/internal/ocr"
	"github.com/fepa-project/expense-ocr/internal/repository"
)

// Worker executes one job at a time; the queue fans instances of Process
// out across its pool.
type Worker struct {
	jobs    repository.JobRepository
	fetcher ocr.ImageFetcher
	engine  ocr.Engine
	sink    events.Sink
	logger  *slog.Logger
	now     func() time.Time
}

func New(jobs repository.JobRepository, fetcher ocr.ImageFetcher, engine ocr.Engine, sink events.Sink, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		jobs:    jobs,
		fetcher: fetcher,
		engine:  engine,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// Process drives a single job through the pipeline. Any step error collapses
// into one FAILED terminal write; Process itself never propagates pipeline
// errors because nobody upstream is waiting on them.
func (w *Worker) Process(ctx context.Context, jobID uuid.UUID) {
	if err := w.jobs.MarkProcessing(ctx, jobID); err != nil {
		switch {
		case errors.Is(err, common.ErrTerminal):
			w.logger.Info("skipping job already claimed or finished", "job_id", jobID)
		case errors.Is(err, common.ErrNotFound):
			w.logger.Warn("queued job no longer exists", "job_id", jobID)
		default:
			w.logger.Error("failed to mark job processing", "job_id", jobID, "error", err)
		}
		return
	}

	if err := w.run(ctx, jobID); err != nil {
		w.fail(ctx, jobID, err)
		return
	}
	w.logger.Info("ocr job finished (COMPLETED)", "job_id", jobID)
}

func (w *Worker) run(ctx context.Context, jobID uuid.UUID) error {
	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		return common.NewAppError("NOT_FOUND", "job vanished after claim", err)
	}

	image, err := w.fetcher.Fetch(ctx, job.FileURL)
	if err != nil {
		return common.NewAppError("FETCH_FAILED", "image download failed", err)
	}

	res, err := w.engine.Recognize(ctx, image)
	if err != nil {
		return common.NewAppError("OCR_FAILED", "text recognition failed", err)
	}

	data := expense.Parse(res.Text, res.Confidence, w.now())
	payload, err := expense.BuildResult(res.Text, res.Confidence, data)
	if err != nil {
		return common.NewAppError("RESULT_INVALID", "result payload rejected", err)
	}

	if err := w.jobs.FinishSuccess(ctx, jobID, payload); err != nil {
		return common.NewAppError("PERSISTENCE_FAILED", "result write failed", err)
	}

	evt := events.OcrCompleted{
		JobID:       jobID.String(),
		UserID:      job.UserID,
		ExpenseData: data.Payload(),
		FileURL:     job.FileURL,
	}
	if err := w.sink.Publish(ctx, evt); err != nil {
		// the row was already completed; the failure write below wins
		return common.NewAppError("PUBLISH_FAILED", "completion event publish failed", err)
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	w.logger.Error("ocr job finished (FAILED)", "job_id", jobID, "error", cause)
	if err := w.jobs.FinishFailure(ctx, jobID, cause.Error()); err != nil {
		w.logger.Error("failed to record job failure", "job_id", jobID, "error", err)
	}
}

// Package events publishes job completion notifications for downstream
// consumers (expense creation lives in another service).
package events

import (
	"context"

	"github.com/fepa-project/expense-ocr/internal/expense"
)

// OcrCompleted is emitted exactly once per successfully processed job.
type OcrCompleted struct {
	JobID       string          `json:"jobId"`
	UserID      string          `json:"userId"`
	ExpenseData expense.Payload `json:"expenseData"`
	FileURL     string          `json:"fileUrl"`
}

// Sink delivers completion events. Publish failures surface to the caller;
// the worker decides what a failed delivery means for the job.
type Sink interface {
	Publish(ctx context.Context, evt OcrCompleted) error
	Close() error
}

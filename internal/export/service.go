// Package export renders a user's job history as an XLSX workbook.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fepa-project/expense-ocr/internal/expense"
	"github.com/fepa-project/expense-ocr/internal/repository"
)

// maxExportRows caps a single workbook; history beyond this is unlikely for
// one user and keeps the response bounded.
const maxExportRows = 10000

var header = []string{
	"Job ID", "Status", "File URL", "Amount", "Category",
	"Spent At", "Confidence", "Error", "Created At", "Completed At",
}

type Service struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// JobHistoryXLSX builds the workbook for one owner and returns the file
// bytes plus a timestamped download name.
func (s *Service) JobHistoryXLSX(ctx context.Context, userID string) ([]byte, string, error) {
	jobs, total, err := s.jobs.List(ctx, repository.ListFilter{
		UserID: userID,
		Page:   1,
		Limit:  maxExportRows,
	})
	if err != nil {
		return nil, "", fmt.Errorf("load job history: %w", err)
	}
	if total > maxExportRows {
		s.logger.Warn("job history truncated for export", "user_id", userID, "total", total, "exported", len(jobs))
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Jobs"
	f.SetSheetName("Sheet1", sheet)

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", err
		}
	}

	for i, job := range jobs {
		row := i + 2

		var amount, confidence float64
		var category, spentAt string
		if len(job.ResultJSON) > 0 {
			var res expense.Result
			if err := json.Unmarshal(job.ResultJSON, &res); err != nil {
				s.logger.Warn("unreadable result payload skipped in export", "job_id", job.ID, "error", err)
			} else {
				amount = res.ExpenseData.Amount
				category = res.ExpenseData.Category
				spentAt = res.ExpenseData.SpentAt
				confidence = res.ExpenseData.Confidence
			}
		}

		errMsg := ""
		if job.ErrorMessage != nil {
			errMsg = *job.ErrorMessage
		}
		completedAt := ""
		if job.CompletedAt != nil {
			completedAt = job.CompletedAt.UTC().Format(time.RFC3339)
		}

		values := []any{
			job.ID.String(), string(job.Status), job.FileURL, amount, category,
			spentAt, confidence, errMsg, job.CreatedAt.UTC().Format(time.RFC3339), completedAt,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, "", err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	name := fmt.Sprintf("ocr-jobs-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	s.logger.Info("job history exported", "user_id", userID, "rows", len(jobs))
	return buf.Bytes(), name, nil
}

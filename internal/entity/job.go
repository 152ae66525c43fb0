package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fepa-project/expense-ocr/constants"
)

// Job represents one receipt image's path from submission to a terminal
// state. Created by the submission endpoint; owned by the worker afterwards.
type Job struct {
	ID           uuid.UUID           `json:"id"`
	UserID       string              `json:"user_id"`
	FileURL      string              `json:"file_url"`
	Status       constants.JobStatus `json:"status"`
	ResultJSON   json.RawMessage     `json:"result_json,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// NewJob builds a queued job for the given owner and image URL.
func NewJob(userID, fileURL string) *Job {
	return &Job{
		ID:        uuid.New(),
		UserID:    userID,
		FileURL:   fileURL,
		Status:    constants.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
}

// JobView is the wire shape returned by the query endpoints.
type JobView struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Status      string          `json:"status"`
	FileURL     string          `json:"fileUrl"`
	ResultJSON  json.RawMessage `json:"resultJson"`
	CreatedAt   string          `json:"createdAt"`
	CompletedAt *string         `json:"completedAt"`
}

// View converts a job to its wire shape. ResultJSON stays null until the
// job completes; CompletedAt stays null while the job is non-terminal.
func (j *Job) View() JobView {
	v := JobView{
		ID:         j.ID.String(),
		UserID:     j.UserID,
		Status:     string(j.Status),
		FileURL:    j.FileURL,
		ResultJSON: j.ResultJSON,
		CreatedAt:  j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.CompletedAt != nil {
		s := j.CompletedAt.UTC().Format(time.RFC3339)
		v.CompletedAt = &s
	}
	return v
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fepa-project/expense-ocr/constants"
	"github.com/fepa-project/expense-ocr/internal/common"
	"github.com/fepa-project/expense-ocr/internal/entity"
	"github.com/fepa-project/expense-ocr/internal/repository"
	"github.com/fepa-project/expense-ocr/internal/worker"
)

type scanRequest struct {
	FileURL string `json:"fileUrl"`
}

// historyMeta mirrors the pagination envelope consumers already depend on.
type historyMeta struct {
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
	Timestamp  string `json:"timestamp"`
}

type historyResponse struct {
	Data []entity.JobView `json:"data"`
	Meta historyMeta      `json:"meta"`
}

// handleScan accepts an image URL, records a queued job and schedules it.
// The response never waits on processing.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}

	v := common.NewValidator()
	v.Field("fileUrl", req.FileURL, common.Required, common.HTTPURL)
	if v.HasErrors() {
		writeErr(w, http.StatusBadRequest, "VALIDATION_FAILED", v.ErrorMessage())
		return
	}

	userID := common.UserIDFromContext(r.Context())
	job := entity.NewJob(userID, strings.TrimSpace(req.FileURL))
	if err := s.jobs.Create(r.Context(), job); err != nil {
		s.logger.Error("job create failed", "user_id", userID, "error", err)
		writeErr(w, http.StatusInternalServerError, "PERSISTENCE_FAILED", "could not record the job")
		return
	}

	if err := s.queue.Enqueue(job.ID); err != nil {
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrQueueClosed) {
			// the row must not sit queued forever with no worker coming
			if ferr := s.jobs.FinishFailure(r.Context(), job.ID, "processing queue full"); ferr != nil {
				s.logger.Error("failed to fail unschedulable job", "job_id", job.ID, "error", ferr)
			}
			writeErr(w, http.StatusServiceUnavailable, "QUEUE_FULL", "processing queue is full, retry later")
			return
		}
		s.logger.Error("enqueue failed", "job_id", job.ID, "error", err)
		writeErr(w, http.StatusInternalServerError, "SCHEDULING_FAILED", "could not schedule the job")
		return
	}

	writeJSON(w, http.StatusCreated, job.View())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "INVALID_ID", "job id must be a UUID")
		return
	}

	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "NOT_FOUND", "job not found")
			return
		}
		s.logger.Error("job lookup failed", "job_id", id, "error", err)
		writeErr(w, http.StatusInternalServerError, "PERSISTENCE_FAILED", "could not load the job")
		return
	}

	if job.UserID != common.UserIDFromContext(r.Context()) {
		writeErr(w, http.StatusForbidden, "FORBIDDEN", "job belongs to another user")
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := common.UserIDFromContext(r.Context())

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", 10)
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	filter := repository.ListFilter{UserID: userID, Page: page, Limit: limit}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := constants.ParseJobStatus(raw)
		if !ok {
			writeErr(w, http.StatusBadRequest, "INVALID_STATUS", "status must be one of queued, processing, completed, failed")
			return
		}
		filter.Status = &status
	}

	jobs, total, err := s.jobs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("job history failed", "user_id", userID, "error", err)
		writeErr(w, http.StatusInternalServerError, "PERSISTENCE_FAILED", "could not load job history")
		return
	}

	views := make([]entity.JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.View())
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Data: views,
		Meta: historyMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := common.UserIDFromContext(r.Context())

	data, name, err := s.exporter.JobHistoryXLSX(r.Context(), userID)
	if err != nil {
		s.logger.Error("job export failed", "user_id", userID, "error", err)
		writeErr(w, http.StatusInternalServerError, "EXPORT_FAILED", "could not build the export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

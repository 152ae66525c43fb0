package constants

// JobStatus is the canonical status for rows in ocr_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued     JobStatus = "queued"     // accepted, waiting for a worker
	JobStatusProcessing JobStatus = "processing" // worker picked it up
	JobStatusCompleted  JobStatus = "completed"  // terminal success, result_json populated
	JobStatusFailed     JobStatus = "failed"     // terminal failure, error_message populated
)

// Terminal reports whether the status is final. A job never leaves a
// terminal status once the store has written it.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ParseJobStatus validates a user-supplied status filter.
func ParseJobStatus(input string) (JobStatus, bool) {
	switch JobStatus(input) {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return JobStatus(input), true
	}
	return "", false
}

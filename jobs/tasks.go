package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskAttendanceDailySummary computes and caches the day's attendance counts.
	TaskAttendanceDailySummary = "attendance:daily_summary"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// AttendanceSummaryPayload selects the day to summarise. Empty means today.
type AttendanceSummaryPayload struct {
	Date string `json:"date,omitempty"`
}

// NewAttendanceSummaryTask constructs the daily summary task.
func NewAttendanceSummaryTask(payload AttendanceSummaryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAttendanceDailySummary, data, asynq.MaxRetry(3)), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.MaxRetry(1))
}

// NewTask builds a task by type name with an empty payload.
func NewTask(taskType string) (*asynq.Task, error) {
	switch taskType {
	case TaskAttendanceDailySummary:
		return NewAttendanceSummaryTask(AttendanceSummaryPayload{})
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(), nil
	default:
		return nil, ErrUnknownTask
	}
}

package model

import "time"

// UserProfile is the slice of the user record the ingestion path needs.
type UserProfile struct {
	ID             string   `json:"id"`
	TelegramUserID string   `json:"telegram_user_id"`
	Plan           PlanTier `json:"subscription_plan"`
	Language       string   `json:"language,omitempty"`
}

func (u *UserProfile) IsZero() bool { return u == nil || u.ID == "" }

// UsageLog is one accepted inbound message, counted against the monthly quota.
type UsageLog struct {
	UserID        string
	Source        Source
	MessageLength int
	CreatedAt     time.Time
}

// StartOfMonth returns 00:00 UTC on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CronRun records one execution of a scheduled job.
type CronRun struct {
	JobName        string    `json:"job_name"`
	Status         string    `json:"status"`
	ProcessedCount int       `json:"processed_count"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ExecutedAt     time.Time `json:"executed_at"`
}

const (
	CronStatusSuccess = "success"
	CronStatusFailed  = "failed"
)

package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"financeflow/internal/domain"
)

// Source is the channel a message arrived on.
type Source string

const (
	SourceTelegram Source = "telegram"
	SourceWhatsApp Source = "whatsapp"
	SourceSMS      Source = "sms"
	SourceWeb      Source = "web"
)

func (s Source) Valid() bool {
	switch s {
	case SourceTelegram, SourceWhatsApp, SourceSMS, SourceWeb:
		return true
	}
	return false
}

// Job is one inbound message waiting to be turned into transactions.
type Job struct {
	UserID    string
	Message   string
	Timestamp time.Time
	Source    Source
	ChatID    string
	MessageID string
}

func NewJob(userID, message string, at time.Time, source Source, chatID, messageID string) (*Job, error) {
	j := &Job{
		UserID:    strings.TrimSpace(userID),
		Message:   message,
		Timestamp: at,
		Source:    source,
		ChatID:    chatID,
		MessageID: messageID,
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Job) Validate() error {
	if j == nil {
		return domain.ErrInvalidArgument
	}
	if strings.TrimSpace(j.UserID) == "" {
		return fmt.Errorf("job user id: %w", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(j.Message) == "" {
		return domain.ErrEmptyMessage
	}
	if !j.Source.Valid() {
		return fmt.Errorf("job source %q: %w", j.Source, domain.ErrInvalidArgument)
	}
	return nil
}

// IdempotencyKey identifies the external message; empty when the transport gave no id.
// Message ids are only unique within a chat, so the chat (or the user when
// there is no chat) is part of the key.
func (j *Job) IdempotencyKey() string {
	if j.MessageID == "" {
		return ""
	}
	scope := j.ChatID
	if scope == "" {
		scope = "u" + j.UserID
	}
	return string(j.Source) + ":" + scope + ":" + j.MessageID
}

// jobWire is the queue payload shape: timestamps travel as epoch milliseconds.
type jobWire struct {
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Source    Source `json:"source"`
	ChatID    string `json:"chatId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

func (j Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(jobWire{
		UserID:    j.UserID,
		Message:   j.Message,
		Timestamp: j.Timestamp.UnixMilli(),
		Source:    j.Source,
		ChatID:    j.ChatID,
		MessageID: j.MessageID,
	})
}

func (j *Job) UnmarshalJSON(b []byte) error {
	var w jobWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*j = Job{
		UserID:    w.UserID,
		Message:   w.Message,
		Timestamp: time.UnixMilli(w.Timestamp).UTC(),
		Source:    w.Source,
		ChatID:    w.ChatID,
		MessageID: w.MessageID,
	}
	return nil
}

// JobHandle is what the producer gets back from an enqueue.
type JobHandle struct {
	ID        string
	Duplicate bool
}

// QueuedJob is the queue envelope around a Job.
type QueuedJob struct {
	ID          string     `json:"id"`
	Job         Job        `json:"job"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
	LastError   string     `json:"lastError,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueuedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	// LeasedUntil is the lease deadline (ms) handed out by the claim that
	// produced this copy; settling with a stale deadline fails.
	LeasedUntil int64 `json:"-"`
}

// QueueStats is a point-in-time view of the queue sets.
type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// RetryPolicy is exponential backoff with an attempt ceiling.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

// Backoff returns the delay before the next try after `attempt` failed attempts (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt-1)))
}

func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

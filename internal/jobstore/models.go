// Package jobstore is the Store component: durable state for inbound events,
// jobs, and attempts, with unique constraints enforcing idempotency.
package jobstore

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFail    AttemptOutcome = "fail"
)

// InboundEvent is one row per delivery from the chat transport. It is never
// mutated once inserted; the UNIQUE constraint on ExternalUpdateID is the
// single source of idempotency truth for the webhook.
type InboundEvent struct {
	ID               int64 `gorm:"primaryKey;autoIncrement"`
	ExternalUpdateID int64 `gorm:"uniqueIndex;not null"`
	ChatID           int64 `gorm:"index;not null"`
	RawPayload       []byte `gorm:"type:blob"`
	ReceivedAt       time.Time
}

func (InboundEvent) TableName() string { return "inbound_events" }

// Job is one row per distinct accepted prompt. Status forms a DAG:
// QUEUED -> RUNNING -> {COMPLETED, QUEUED (retry), FAILED}; once terminal no
// attribute may change again.
type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID

	InboundEventID *int64 `gorm:"index"`
	ChatID         int64  `gorm:"index;not null"`
	UserID         int64  `gorm:"index;not null"`
	Prompt         string `gorm:"type:text;not null"`

	Status       JobStatus `gorm:"type:varchar(16);index;not null"`
	AttemptCount int       `gorm:"not null;default:0"`

	BundleID         *string `gorm:"type:varchar(36);uniqueIndex"`
	PreviewURL       *string `gorm:"type:text"`
	ErrorMessage     *string `gorm:"type:text"`
	RawAIResponse    []byte  `gorm:"type:blob"`
	ValidationReport []byte  `gorm:"type:blob"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "jobs" }

// Attempt is one row per Worker execution of a Job. (JobID, AttemptNo) is
// UNIQUE; Outcome is null while the attempt is running.
type Attempt struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	JobID      string `gorm:"size:26;not null;index:uniq_job_attempt_no,unique,priority:1"`
	AttemptNo  int    `gorm:"not null;index:uniq_job_attempt_no,unique,priority:2"`
	Provider   string `gorm:"type:varchar(32);not null"`
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcome    *AttemptOutcome `gorm:"type:varchar(8)"`
	ErrorDetail *string        `gorm:"type:text"`
	StatusCode  *int
	DurationMs  *int64
}

func (Attempt) TableName() string { return "attempts" }

package jobstore

import (
	"context"
	"errors"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// ErrConflict is returned by the compare-and-set transitions when the Job
// is not in the expected status — another worker (or a queue redelivery)
// already owns it — and by CloseAttemptSuccess when the bundle_id is
// already claimed by another Job.
var ErrConflict = errors.New("jobstore: conflict")

// ErrNotFound mirrors gorm.ErrRecordNotFound at the Store boundary so
// callers never need to import gorm directly.
var ErrNotFound = gorm.ErrRecordNotFound

type RequeueDecision int

const (
	Terminal RequeueDecision = iota
	Requeue
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func newJobID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulid.DefaultEntropy())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// isDuplicateKeyErr reports whether err is a MySQL 1062 (duplicate entry)
// violation, the signal Store translates into a typed duplicate return
// instead of a raised error.
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// modernc.org/sqlite (used by the glebarez driver in tests) doesn't
	// implement gorm's error translator, so fall back to its message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// InsertEventOnce attempts to insert an InboundEvent; on UNIQUE violation of
// ExternalUpdateID it returns duplicate=true without raising.
func (r *Repo) InsertEventOnce(ctx context.Context, externalID, chatID int64, raw []byte) (internalID int64, duplicate bool, err error) {
	ev := &InboundEvent{
		ExternalUpdateID: externalID,
		ChatID:           chatID,
		RawPayload:       raw,
		ReceivedAt:       time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return 0, true, nil
		}
		return 0, false, err
	}
	return ev.ID, false, nil
}

func (r *Repo) FindJobByExternalEvent(ctx context.Context, externalID int64) (*Job, error) {
	var ev InboundEvent
	if err := r.db.WithContext(ctx).
		Where("external_update_id = ?", externalID).
		First(&ev).Error; err != nil {
		return nil, err
	}

	var job Job
	if err := r.db.WithContext(ctx).
		Where("inbound_event_id = ?", ev.ID).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob inserts a Job row with status=QUEUED, attempt_count=0.
func (r *Repo) CreateJob(ctx context.Context, eventInternalID *int64, chatID, userID int64, prompt string) (string, error) {
	id, err := newJobID()
	if err != nil {
		return "", err
	}
	job := &Job{
		ID:             id,
		InboundEventID: eventInternalID,
		ChatID:         chatID,
		UserID:         userID,
		Prompt:         prompt,
		Status:         JobQueued,
		AttemptCount:   0,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return "", err
	}
	return job.ID, nil
}

func (r *Repo) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// OpenAttempt inserts the Attempt row and transitions the Job QUEUED->RUNNING
// with attempt_count bumped to attemptNo, as a single transaction. Returns
// ErrConflict if the job was not in QUEUED when the update ran.
func (r *Repo) OpenAttempt(ctx context.Context, jobID string, attemptNo int, provider string) (int64, error) {
	var attemptID int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Job{}).
			Where("id = ? AND status = ?", jobID, JobQueued).
			Updates(map[string]any{
				"status":        JobRunning,
				"attempt_count": attemptNo,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		attempt := &Attempt{
			JobID:     jobID,
			AttemptNo: attemptNo,
			Provider:  provider,
			StartedAt: time.Now(),
		}
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		attemptID = attempt.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return attemptID, nil
}

// CloseAttemptSuccess seals the attempt SUCCESS and sets the Job terminal
// state COMPLETED with its bundle_id/preview_url. Fails with ErrConflict if
// the Job is not RUNNING or if bundleID is already set on another Job.
func (r *Repo) CloseAttemptSuccess(ctx context.Context, attemptID int64, jobID, bundleID, previewURL string, rawResponse []byte) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		outcome := AttemptSuccess
		if err := tx.Model(&Attempt{}).
			Where("id = ?", attemptID).
			Updates(map[string]any{
				"finished_at": now,
				"outcome":     outcome,
			}).Error; err != nil {
			return err
		}

		res := tx.Model(&Job{}).
			Where("id = ? AND status = ?", jobID, JobRunning).
			Updates(map[string]any{
				"status":          JobCompleted,
				"bundle_id":       bundleID,
				"preview_url":     previewURL,
				"raw_ai_response": rawResponse,
				"error_message":   nil,
			})
		if res.Error != nil {
			if isDuplicateKeyErr(res.Error) {
				return ErrConflict
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
}

// MarkJobFailed transitions a Job directly from QUEUED to FAILED with no
// Attempt involved — the compensating action when Ingest commits a Job but
// then fails to publish it onto the Queue. Returns ErrConflict if the Job is
// no longer QUEUED (a Worker already claimed it by the time this runs).
func (r *Repo) MarkJobFailed(ctx context.Context, jobID string, errMsg string) error {
	res := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", jobID, JobQueued).
		Updates(map[string]any{
			"status":        JobFailed,
			"error_message": errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CloseAttemptFailure seals the attempt FAIL and drives the Job to either
// QUEUED (retry) or FAILED (terminal) per next.
func (r *Repo) CloseAttemptFailure(ctx context.Context, attemptID int64, jobID string, errMsg string, statusCode *int, rawResponse, validationReport []byte, next RequeueDecision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		outcome := AttemptFail
		if err := tx.Model(&Attempt{}).
			Where("id = ?", attemptID).
			Updates(map[string]any{
				"finished_at":  now,
				"outcome":      outcome,
				"error_detail": errMsg,
				"status_code":  statusCode,
			}).Error; err != nil {
			return err
		}

		newStatus := JobFailed
		if next == Requeue {
			newStatus = JobQueued
		}

		res := tx.Model(&Job{}).
			Where("id = ? AND status = ?", jobID, JobRunning).
			Updates(map[string]any{
				"status":            newStatus,
				"error_message":     errMsg,
				"raw_ai_response":   rawResponse,
				"validation_report": validationReport,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
}

package jobstore

import (
	"context"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&InboundEvent{}, &Job{}, &Attempt{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestInsertEventOnce_DuplicateExternalID(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	id1, dup1, err := repo.InsertEventOnce(ctx, 1001, 42, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if dup1 {
		t.Fatalf("first insert should not be duplicate")
	}
	if id1 == 0 {
		t.Fatalf("expected non-zero internal id")
	}

	_, dup2, err := repo.InsertEventOnce(ctx, 1001, 42, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if !dup2 {
		t.Fatalf("second insert with same external id should be flagged duplicate")
	}

	var count int64
	db.Model(&InboundEvent{}).Where("external_update_id = ?", 1001).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
}

func TestCreateJob_DefaultsQueued(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, nil, 42, 7, "Build a landing page")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobQueued {
		t.Fatalf("expected QUEUED, got %s", job.Status)
	}
	if job.AttemptCount != 0 {
		t.Fatalf("expected attempt_count=0, got %d", job.AttemptCount)
	}
}

func TestOpenAttempt_TransitionsToRunningAndIncrementsAttemptCount(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, nil, 42, 7, "prompt")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	attemptID, err := repo.OpenAttempt(ctx, jobID, 1, "ollama")
	if err != nil {
		t.Fatalf("open attempt: %v", err)
	}
	if attemptID == 0 {
		t.Fatalf("expected non-zero attempt id")
	}

	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobRunning {
		t.Fatalf("expected RUNNING, got %s", job.Status)
	}
	if job.AttemptCount != 1 {
		t.Fatalf("expected attempt_count=1, got %d", job.AttemptCount)
	}
}

func TestOpenAttempt_ConflictWhenNotQueued(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, nil, 42, 7, "prompt")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := repo.OpenAttempt(ctx, jobID, 1, "ollama"); err != nil {
		t.Fatalf("first open attempt: %v", err)
	}

	// A redelivery of the same message must not start a second RUNNING episode.
	if _, err := repo.OpenAttempt(ctx, jobID, 1, "ollama"); err != ErrConflict {
		t.Fatalf("expected ErrConflict on redelivery, got %v", err)
	}
}

func TestCloseAttemptSuccess_SetsCompletedAndBundle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, nil, 42, 7, "prompt")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	attemptID, err := repo.OpenAttempt(ctx, jobID, 1, "ollama")
	if err != nil {
		t.Fatalf("open attempt: %v", err)
	}

	if err := repo.CloseAttemptSuccess(ctx, attemptID, jobID, "bundle-abc", "/p/bundle-abc/index.html", []byte("raw")); err != nil {
		t.Fatalf("close attempt success: %v", err)
	}

	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobCompleted {
		t.Fatalf("expected COMPLETED, got %s", job.Status)
	}
	if job.BundleID == nil || *job.BundleID != "bundle-abc" {
		t.Fatalf("expected bundle_id set, got %v", job.BundleID)
	}

	var attempt Attempt
	if err := db.First(&attempt, "id = ?", attemptID).Error; err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.Outcome == nil || *attempt.Outcome != AttemptSuccess {
		t.Fatalf("expected attempt outcome SUCCESS, got %v", attempt.Outcome)
	}
}

func TestCloseAttemptFailure_RequeueSetsQueuedAgain(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, nil, 42, 7, "prompt")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	attemptID, err := repo.OpenAttempt(ctx, jobID, 1, "ollama")
	if err != nil {
		t.Fatalf("open attempt: %v", err)
	}

	if err := repo.CloseAttemptFailure(ctx, attemptID, jobID, "rate limited", nil, nil, nil, Requeue); err != nil {
		t.Fatalf("close attempt failure: %v", err)
	}

	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobQueued {
		t.Fatalf("expected QUEUED after requeue decision, got %s", job.Status)
	}

	// Next attempt is now eligible.
	attempt2ID, err := repo.OpenAttempt(ctx, jobID, 2, "ollama")
	if err != nil {
		t.Fatalf("open second attempt: %v", err)
	}
	if err := repo.CloseAttemptFailure(ctx, attempt2ID, jobID, "still broken", nil, nil, nil, Terminal); err != nil {
		t.Fatalf("close second attempt failure: %v", err)
	}

	job, err = repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobFailed {
		t.Fatalf("expected FAILED after terminal decision, got %s", job.Status)
	}
	if job.AttemptCount != 2 {
		t.Fatalf("expected attempt_count=2, got %d", job.AttemptCount)
	}
}

func TestFindJobByExternalEvent(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	evID, _, err := repo.InsertEventOnce(ctx, 2002, 42, []byte("{}"))
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	jobID, err := repo.CreateJob(ctx, &evID, 42, 7, "prompt")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	job, err := repo.FindJobByExternalEvent(ctx, 2002)
	if err != nil {
		t.Fatalf("find job by external event: %v", err)
	}
	if job.ID != jobID {
		t.Fatalf("expected job id %s, got %s", jobID, job.ID)
	}

	if _, err := repo.FindJobByExternalEvent(ctx, 9999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown external id, got %v", err)
	}
}

func TestMarkJobFailed_FromQueued(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, nil, 42, 7, "prompt")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := repo.MarkJobFailed(ctx, jobID, "queue publish failed: broker unreachable"); err != nil {
		t.Fatalf("mark job failed: %v", err)
	}

	job, err := repo.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobFailed {
		t.Fatalf("expected job FAILED, got %s", job.Status)
	}
	if job.ErrorMessage == nil || *job.ErrorMessage == "" {
		t.Fatalf("expected error message to be persisted")
	}
}

func TestMarkJobFailed_ConflictWhenAlreadyClaimed(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	jobID, err := repo.CreateJob(ctx, nil, 42, 7, "prompt")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := repo.OpenAttempt(ctx, jobID, 1, "ollama"); err != nil {
		t.Fatalf("open attempt: %v", err)
	}

	// A worker has already claimed the job by the time the (delayed) publish
	// failure compensation runs — MarkJobFailed must not clobber it.
	if err := repo.MarkJobFailed(ctx, jobID, "too late"); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

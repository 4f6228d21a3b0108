// Package worker drives one RUNNING episode of a Job per queue item: it
// invokes the generative model, validates and sanitizes its output, renders
// and stores the result, and seals the Job's terminal or retry transition —
// the seven-step episode at the center of the job lifecycle engine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kestrelhq/pagegen/internal/apperr"
	"github.com/kestrelhq/pagegen/internal/bundle"
	"github.com/kestrelhq/pagegen/internal/genmodel"
	"github.com/kestrelhq/pagegen/internal/jobstore"
	"github.com/kestrelhq/pagegen/internal/logging"
	"github.com/kestrelhq/pagegen/internal/notify"
	"github.com/kestrelhq/pagegen/internal/queue"
	"github.com/kestrelhq/pagegen/internal/render"
	"github.com/kestrelhq/pagegen/internal/sanitize"
	"github.com/kestrelhq/pagegen/internal/validator"
)

// Config bundles the retry policy and external addressing the Worker needs
// but does not own.
type Config struct {
	Provider       string
	Model          string
	ModelTimeout   time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	PreviewBaseURL string
}

// Publisher is the subset of queue.Publisher the Worker needs to schedule a
// backed-off retry — an interface so episodes can be tested without a live
// broker.
type Publisher interface {
	PublishDelayed(ctx context.Context, item queue.Item, delay time.Duration) error
}

type Worker struct {
	repo       *jobstore.Repo
	registry   *genmodel.Registry
	sanitizer  *sanitize.Sanitizer
	bundles    *bundle.Store
	publisher  Publisher
	dispatcher *notify.Dispatcher
	log        *logging.Logger
	cfg        Config
}

func New(repo *jobstore.Repo, registry *genmodel.Registry, sanitizer *sanitize.Sanitizer, bundles *bundle.Store, publisher Publisher, dispatcher *notify.Dispatcher, log *logging.Logger, cfg Config) *Worker {
	return &Worker{
		repo:       repo,
		registry:   registry,
		sanitizer:  sanitizer,
		bundles:    bundles,
		publisher:  publisher,
		dispatcher: dispatcher,
		log:        log,
		cfg:        cfg,
	}
}

// Process runs the full per-message algorithm for item. It never returns an
// error the caller needs to act on — every outcome, including an unexpected
// panic-turned-failure, is resolved into a persisted Job state, and the
// queue item is always acked by the caller once Process returns.
func (w *Worker) Process(ctx context.Context, item queue.Item) {
	var (
		attemptID int64
		attemptNo int
	)
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("panic recovered in worker episode", "job_id", item.JobID, "panic", r)
			if attemptID != 0 {
				w.failAttempt(ctx, attemptID, item.JobID, attemptNo, fmt.Sprintf("worker panic: %v", r), nil, nil, nil, true)
			}
		}
	}()

	// 1. Fetch.
	job, err := w.repo.GetJob(ctx, item.JobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			w.log.Warn("job not found, dropping", "job_id", item.JobID)
			return
		}
		w.log.Error("fetch job failed", "job_id", item.JobID, "err", err)
		return
	}

	// 2. Terminal short-circuit.
	if job.Status == jobstore.JobCompleted || job.Status == jobstore.JobFailed {
		w.log.Debug("job already terminal, dropping redelivery", "job_id", item.JobID, "status", job.Status)
		return
	}

	// 3. Transition to RUNNING.
	attemptNo = job.AttemptCount + 1
	attemptID, err = w.repo.OpenAttempt(ctx, item.JobID, attemptNo, w.cfg.Provider)
	if err != nil {
		if errors.Is(err, jobstore.ErrConflict) {
			w.log.Debug("job not queued, another worker owns it", "job_id", item.JobID)
			return
		}
		w.log.Error("open attempt failed", "job_id", item.JobID, "err", err)
		return
	}

	// 4. Invoke model.
	genCtx, cancel := context.WithTimeout(ctx, w.cfg.ModelTimeout)
	result, genErr := w.generate(genCtx, job.Prompt)
	cancel()

	if genErr != nil {
		retryable := !apperr.Is(genErr, apperr.KindPermanent)
		w.failAttempt(ctx, attemptID, item.JobID, attemptNo, genErr.Error(), nil, nil, nil, retryable)
		return
	}

	if !result.Success {
		retryable := result.Retryable
		w.failAttempt(ctx, attemptID, item.JobID, attemptNo, result.Err, []byte(result.RawResponse), nil, nil, retryable)
		return
	}

	// 5. Validate.
	validation := validator.Validate(result.Template)
	if !validation.Valid {
		report := formatReport(validation)
		w.failAttempt(ctx, attemptID, item.JobID, attemptNo,
			"template validation failed: "+strings.Join(validation.Errors, "; "),
			[]byte(result.RawResponse), []byte(report), nil, true)
		return
	}

	// 6. Sanitize + render + store.
	sanitized := w.sanitizer.Template(result.Template)
	html := render.Document(sanitized)

	bundleID, bundleErr := w.bundles.Create(html)
	if bundleErr != nil {
		w.failAttempt(ctx, attemptID, item.JobID, attemptNo, "bundle write failed: "+bundleErr.Error(),
			[]byte(result.RawResponse), nil, nil, false)
		return
	}

	previewPath := fmt.Sprintf("/p/%s/index.html", bundleID)
	previewURL := strings.TrimRight(w.cfg.PreviewBaseURL, "/") + previewPath

	if err := w.repo.CloseAttemptSuccess(ctx, attemptID, item.JobID, bundleID, previewPath, []byte(result.RawResponse)); err != nil {
		w.log.Error("close attempt success failed", "job_id", item.JobID, "err", err)
		_ = w.bundles.Remove(bundleID)
		return
	}

	w.notify(job.ChatID, notify.KindPreviewReady, "Your page is ready: "+previewURL)
}

func (w *Worker) generate(ctx context.Context, prompt string) (genmodel.GenerationResult, error) {
	provider, err := w.registry.Get(ctx, w.cfg.Provider, w.cfg.Model)
	if err != nil {
		return genmodel.GenerationResult{}, fmt.Errorf("worker: resolve provider: %w", err)
	}
	return provider.Generate(ctx, []genmodel.Message{
		{Role: "user", Content: prompt},
	})
}

// failAttempt implements step 7 (retry decision) and the permanent-failure
// branch of step 4: close the attempt FAIL, then either requeue with backoff
// or leave the job terminally FAILED.
func (w *Worker) failAttempt(ctx context.Context, attemptID int64, jobID string, attemptNo int, errMsg string, rawResponse, validationReport []byte, statusCode *int, retryable bool) {
	next := jobstore.Terminal
	if retryable && attemptNo < w.cfg.MaxRetries {
		next = jobstore.Requeue
	}

	if err := w.repo.CloseAttemptFailure(ctx, attemptID, jobID, errMsg, statusCode, rawResponse, validationReport, next); err != nil {
		w.log.Error("close attempt failure failed", "job_id", jobID, "err", err)
		return
	}

	if next == jobstore.Terminal {
		w.log.Info("job failed terminally", "job_id", jobID, "attempt", attemptNo, "err", errMsg)
		if job, err := w.repo.GetJob(ctx, jobID); err == nil {
			w.notify(job.ChatID, notify.KindJobFailed, "Sorry, I couldn't build that page.")
		}
		return
	}

	delay := queue.Backoff(attemptNo, w.cfg.RetryBaseDelay, w.cfg.RetryMaxDelay)
	if err := w.publisher.PublishDelayed(ctx, queue.Item{JobID: jobID, AttemptNo: attemptNo + 1}, delay); err != nil {
		w.log.Error("publish delayed retry failed", "job_id", jobID, "err", err)
	}
}

func (w *Worker) notify(chatID int64, kind notify.Kind, text string) {
	if w.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.dispatcher.Enqueue(ctx, notify.Notification{ChatID: chatID, Kind: kind, Text: text}); err != nil {
		w.log.Warn("notification enqueue dropped", "chat_id", chatID, "err", err)
	}
}

func formatReport(v validator.ValidationResult) string {
	var b strings.Builder
	for _, e := range v.Errors {
		b.WriteString(e)
		b.WriteString("\n")
	}
	return b.String()
}

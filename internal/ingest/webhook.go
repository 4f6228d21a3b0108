// Package ingest implements the webhook endpoint that receives chat-
// transport events, deduplicates and persists them, creates a Job, and
// publishes it onto the work queue — generalized from the teacher's
// SendChatMessageAsync handler into an unauthenticated-by-JWT,
// shared-secret-authenticated webhook receiver.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/pagegen/internal/jobstore"
	"github.com/kestrelhq/pagegen/internal/logging"
	"github.com/kestrelhq/pagegen/internal/notify"
	"github.com/kestrelhq/pagegen/internal/queue"
)

// IngressDeadline bounds how long the webhook handler may take to respond,
// regardless of downstream state.
const IngressDeadline = 2 * time.Second

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	Chat Chat   `json:"chat"`
	From From   `json:"from"`
	Text string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type From struct {
	ID int64 `json:"id"`
}

// Publisher is the subset of queue.Publisher the webhook needs — accepting
// an interface here keeps the handler testable without a live broker.
type Publisher interface {
	Publish(ctx context.Context, item queue.Item) error
}

// Handler wires the Store, Queue, and notification dispatcher behind the
// webhook endpoint.
type Handler struct {
	repo        *jobstore.Repo
	publisher   Publisher
	dispatcher  *notify.Dispatcher
	limiter     *RateLimiter
	dedupe      *DedupeCache
	secretToken string
	log         *logging.Logger
}

func NewHandler(repo *jobstore.Repo, publisher Publisher, dispatcher *notify.Dispatcher, limiter *RateLimiter, dedupe *DedupeCache, secretToken string, log *logging.Logger) *Handler {
	return &Handler{
		repo:        repo,
		publisher:   publisher,
		dispatcher:  dispatcher,
		limiter:     limiter,
		dedupe:      dedupe,
		secretToken: secretToken,
		log:         log,
	}
}

type webhookResponse struct {
	OK      bool   `json:"ok"`
	JobID   string `json:"job_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Webhook implements the eight-step ingest algorithm. Every branch either
// replies within IngressDeadline or hands work off to a background task.
func (h *Handler) Webhook(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), IngressDeadline)
	defer cancel()

	// 1. Authentication.
	if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != h.secretToken {
		c.JSON(http.StatusUnauthorized, webhookResponse{OK: false, Message: "unauthorized"})
		return
	}

	// 2. Parse.
	var upd Update
	if err := json.NewDecoder(c.Request.Body).Decode(&upd); err != nil || upd.Message == nil {
		c.JSON(http.StatusBadRequest, webhookResponse{OK: false, Message: "malformed body"})
		return
	}

	chatID := upd.Message.Chat.ID
	userID := upd.Message.From.ID

	if h.limiter != nil && !h.limiter.Allow(chatID) {
		c.JSON(http.StatusOK, webhookResponse{OK: true, Message: "rate limited, try again shortly"})
		return
	}

	// 3. Classify.
	class, prompt := Classify(upd.Message.Text)
	switch class {
	case ClassEmpty:
		h.notifyBestEffort(chatID, notify.KindInfo, "I didn't receive any text.")
		c.JSON(http.StatusOK, webhookResponse{OK: true})
		return
	case ClassControl:
		h.notifyBestEffort(chatID, notify.KindInfo, controlResponse(upd.Message.Text))
		c.JSON(http.StatusOK, webhookResponse{OK: true})
		return
	case ClassEmptyPrompt:
		h.notifyBestEffort(chatID, notify.KindInfo, "Your /prompt was empty — include some text after the command.")
		c.JSON(http.StatusOK, webhookResponse{OK: true})
		return
	case ClassInvalid:
		h.notifyBestEffort(chatID, notify.KindInfo, "I didn't understand that. Try /prompt <describe the page you want>.")
		c.JSON(http.StatusOK, webhookResponse{OK: true})
		return
	}

	// Fast-path dedupe so a hot-retried delivery doesn't round-trip the
	// database; the unique constraint on external_update_id is still the
	// single source of truth if this cache misses or is unavailable.
	if h.dedupe != nil {
		if seen, jobID := h.dedupe.Seen(ctx, upd.UpdateID); seen {
			c.JSON(http.StatusOK, webhookResponse{OK: true, JobID: jobID, Message: "already received"})
			return
		}
	}

	// 4. Deduplicate.
	raw, _ := json.Marshal(upd)
	internalID, duplicate, err := h.repo.InsertEventOnce(ctx, upd.UpdateID, chatID, raw)
	if err != nil {
		h.log.Error("insert event failed", "update_id", upd.UpdateID, "err", err)
		c.JSON(http.StatusInternalServerError, webhookResponse{OK: false, Message: "internal error"})
		return
	}
	if duplicate {
		job, findErr := h.repo.FindJobByExternalEvent(ctx, upd.UpdateID)
		if findErr == nil && job != nil {
			c.JSON(http.StatusOK, webhookResponse{OK: true, JobID: job.ID, Message: "already processing"})
			return
		}
		c.JSON(http.StatusOK, webhookResponse{OK: true, Message: "already received"})
		return
	}

	// 5. Create job.
	jobID, err := h.repo.CreateJob(ctx, &internalID, chatID, userID, prompt)
	if err != nil {
		h.log.Error("create job failed", "update_id", upd.UpdateID, "err", err)
		c.JSON(http.StatusInternalServerError, webhookResponse{OK: false, Message: "internal error"})
		return
	}

	if h.dedupe != nil {
		h.dedupe.Remember(ctx, upd.UpdateID, jobID)
	}

	// 6. Commit already happened: CreateJob's transaction returned successfully.

	// 7. Publish.
	if err := h.publisher.Publish(ctx, queue.Item{JobID: jobID, AttemptNo: 1}); err != nil {
		h.log.Error("publish failed, marking job failed", "job_id", jobID, "err", err)
		failErr := h.repo.MarkJobFailed(ctx, jobID, "queue publish failed: "+err.Error())
		if failErr != nil && !errors.Is(failErr, jobstore.ErrConflict) {
			h.log.Error("compensating mark-failed also failed", "job_id", jobID, "err", failErr)
		}
		c.JSON(http.StatusOK, webhookResponse{OK: false, JobID: jobID, Message: "queue error, please try again"})
		return
	}

	// 8. Respond, then notify in the background.
	c.JSON(http.StatusOK, webhookResponse{OK: true, JobID: jobID})
	h.notifyBestEffort(chatID, notify.KindInfo, "Working on it — I'll send you a link when it's ready.")
}

func (h *Handler) notifyBestEffort(chatID int64, kind notify.Kind, text string) {
	if h.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.dispatcher.Enqueue(ctx, notify.Notification{ChatID: chatID, Kind: kind, Text: text}); err != nil {
		h.log.Warn("notification enqueue dropped", "chat_id", chatID, "err", err)
	}
}

func controlResponse(cmd string) string {
	switch {
	case len(cmd) >= 6 && cmd[:6] == "/start":
		return "Hi! Send /prompt <describe the page you want> and I'll build it."
	case len(cmd) >= 5 && cmd[:5] == "/help":
		return "Send /prompt <describe the page you want>, e.g. /prompt Build a landing page for a bakery."
	default:
		return "Unrecognized command."
	}
}

// Package notify dispatches chat notifications about job outcomes through a
// bounded worker pool, replacing the bare "go func(){...}()" fire-and-forget
// pattern: a burst of completions can never spawn an unbounded number of
// goroutines, and Shutdown gives in-flight sends a chance to finish before
// the process exits.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/kestrelhq/pagegen/internal/logging"
)

// Kind distinguishes the shape of a notification so a Sender can format it
// appropriately.
type Kind string

const (
	KindPreviewReady Kind = "preview_ready"
	KindJobFailed    Kind = "job_failed"
	KindInfo         Kind = "info"
)

// Notification is one message destined for a single chat.
type Notification struct {
	ChatID int64
	Kind   Kind
	Text   string
}

// Sender delivers a single notification to its destination chat. An
// implementation wraps a concrete transport (Telegram Bot API, etc).
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher fans notifications out across a fixed pool of goroutines
// reading from a bounded channel. Producers that outrun the pool block
// rather than leak goroutines.
type Dispatcher struct {
	sender Sender
	log    *logging.Logger
	queue  chan Notification
	wg     sync.WaitGroup
}

// New starts a Dispatcher with workers consumer goroutines and a queue of
// the given capacity.
func New(sender Sender, log *logging.Logger, workers, queueCapacity int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	d := &Dispatcher{
		sender: sender,
		log:    log,
		queue:  make(chan Notification, queueCapacity),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run(i)
	}
	return d
}

func (d *Dispatcher) run(workerID int) {
	defer d.wg.Done()
	for n := range d.queue {
		ctx := context.Background()
		if err := d.sender.Send(ctx, n); err != nil {
			d.log.Warn("notification delivery failed",
				"worker", workerID, "chat_id", n.ChatID, "kind", n.Kind, "err", err)
		}
	}
}

// Enqueue submits a notification for delivery. It blocks if every worker is
// busy and the queue is full; ctx cancellation unblocks it.
func (d *Dispatcher) Enqueue(ctx context.Context, n Notification) error {
	select {
	case d.queue <- n:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: enqueue: %w", ctx.Err())
	}
}

// Shutdown closes the queue and waits for in-flight and already-queued
// notifications to drain, or for ctx to expire, whichever comes first.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.queue)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: shutdown: %w", ctx.Err())
	}
}

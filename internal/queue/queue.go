// Package queue owns the job queue's RabbitMQ topology: a main queue, a
// retry queue that dead-letters back to main after a per-message TTL, and a
// DLQ that the main queue dead-letters into on reject/nack. The teacher
// declared this topology twice (once in cmd/worker, once in the publisher) —
// here it is declared once and shared by both producer and consumer sides.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Item is a unit of work pulled off the main queue: a job to (re)attempt.
type Item struct {
	JobID     string `json:"job_id"`
	AttemptNo int    `json:"attempt_no"`
}

// Names holds the three queue names derived from a single base name.
type Names struct {
	Main  string
	Retry string
	DLQ   string
}

func namesFor(base string) Names {
	return Names{Main: base, Retry: base + ".retry", DLQ: base + ".dlq"}
}

// declareTopology declares the DLQ, retry queue, and main queue, in that
// dependency order, on ch.
func declareTopology(ch *amqp.Channel, n Names) error {
	if _, err := ch.QueueDeclare(n.DLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue: declare dlq: %w", err)
	}
	if _, err := ch.QueueDeclare(n.Retry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": n.Main,
	}); err != nil {
		return fmt.Errorf("queue: declare retry: %w", err)
	}
	if _, err := ch.QueueDeclare(n.Main, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": n.DLQ,
	}); err != nil {
		return fmt.Errorf("queue: declare main: %w", err)
	}
	return nil
}

// Publisher publishes job items onto the main queue, or onto the retry
// queue with a per-message delay, for the Ingest and Worker components
// respectively.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	names Names
}

// NewPublisher dials url, declares the topology, and returns a ready
// Publisher. Close must be called to release the connection.
func NewPublisher(url, baseQueue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue: channel: %w", err)
	}
	names := namesFor(baseQueue)
	if err := declareTopology(ch, names); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, names: names}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Publish enqueues item onto the main queue for immediate delivery.
func (p *Publisher) Publish(ctx context.Context, item Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("queue: marshal item: %w", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(cctx, "", p.names.Main, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
}

// PublishDelayed enqueues item onto the retry queue with a per-message TTL
// of delay; once it expires, RabbitMQ dead-letters it back onto the main
// queue. This is how the Worker schedules a backed-off retry without
// blocking a goroutine on a timer.
func (p *Publisher) PublishDelayed(ctx context.Context, item Item, delay time.Duration) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("queue: marshal item: %w", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ms := delay / time.Millisecond
	if ms < 0 {
		ms = 0
	}
	return p.ch.PublishWithContext(cctx, "", p.names.Retry, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
		Expiration:   strconv.FormatInt(int64(ms), 10),
	})
}

// Backoff computes the delay to wait after failed attempt n (1-indexed)
// before the next one: base for n=1, doubling each time, capped at
// maxDelay. n < 1 is treated as 1.
func Backoff(n int, base, maxDelay time.Duration) time.Duration {
	if n < 1 {
		n = 1
	}
	d := base * time.Duration(uint64(1)<<uint(n-1))
	if d > maxDelay || d <= 0 {
		return maxDelay
	}
	return d
}

// Consumer drains the main queue and hands each decoded delivery to the
// caller over a channel; the caller acks it, or rejects it (no requeue, so
// it dead-letters to the DLQ).
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	names Names
}

// NewConsumer dials url, declares the topology, sets prefetch, and returns a
// ready Consumer.
func NewConsumer(url, baseQueue string, prefetch int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue: channel: %w", err)
	}
	names := namesFor(baseQueue)
	if err := declareTopology(ch, names); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue: qos: %w", err)
	}
	return &Consumer{conn: conn, ch: ch, names: names}, nil
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Delivery pairs a decoded Item with the ack/reject handles of the
// underlying AMQP delivery, so a caller can decide the outcome without this
// package knowing about retry policy.
type Delivery struct {
	Item Item
	raw  amqp.Delivery
}

// Ack acknowledges successful, terminal processing of the delivery.
func (d Delivery) Ack() error { return d.raw.Ack(false) }

// Reject drops the delivery without requeue; the main queue's
// dead-letter-exchange routes it to the DLQ.
func (d Delivery) Reject() error { return d.raw.Reject(false) }

// Deliveries returns a channel of decoded deliveries from the main queue.
// Messages that fail to decode as a valid Item are rejected immediately and
// never surfaced to the caller.
func (c *Consumer) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	raw, err := c.ch.Consume(c.names.Main, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-raw:
				if !ok {
					return
				}
				var item Item
				if err := json.Unmarshal(d.Body, &item); err != nil || item.JobID == "" {
					_ = d.Reject(false)
					continue
				}
				select {
				case out <- Delivery{Item: item, raw: d}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

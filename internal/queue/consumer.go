package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer listens to RegistrationQueue and appends one human-friendly line
// per event to the ticket log.
type Consumer struct {
	URL     string
	LogPath string
	Logger  *slog.Logger
}

// NewConsumer returns a Consumer writing to logPath (logs/tickets.log when
// empty).
func NewConsumer(url, logPath string, logger *slog.Logger) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	if logPath == "" {
		logPath = filepath.Join("logs", "tickets.log")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{URL: url, LogPath: logPath, Logger: logger.With("component", "ticket-consumer")}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warn("dial broker failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.Logger.Warn("consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(RegistrationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(RegistrationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.Logger.Error("handle message failed", "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and appends it to the ticket log.
func (c *Consumer) Handle(body []byte) error {
	var ev RegistrationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.RegistrationID == "" {
		return errors.New("event without registration id")
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev RegistrationEvent) string {
	action := "Registration"
	switch ev.Type {
	case EventRegistrationCreated:
		action = "Ticket issued"
	case EventRegistrationRemoved:
		action = "Ticket cancelled"
	}
	return fmt.Sprintf("[%s] %s | registration_id=%s | child=%q | class=%q | seats=[%s]\n",
		ev.OccurredAt, action, ev.RegistrationID, ev.ChildName, ev.ChildClass, strings.Join(ev.SeatLabels, ","))
}

// Package service implements the seating operations: seat allocation,
// administrator actions and ticket lookup.  All state lives in a
// repository.Store; every mutating operation runs in one store transaction.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/school-event-seating/internal/metrics"
	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/queue"
	"github.com/iliyamo/school-event-seating/internal/repository"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks EventPublisher

// EventPublisher delivers registration events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.RegistrationEvent) error
}

const (
	defaultPublishTimeout = 5 * time.Second
	defaultEventBacklog   = 256
)

// Service holds the seating operations.
type Service struct {
	store          repository.Store
	publisher      EventPublisher
	publishTimeout time.Duration
	backlog        int
	metrics        *metrics.Metrics
	log            *slog.Logger
	now            func() time.Time

	mu     sync.Mutex
	closed bool
	events chan queue.RegistrationEvent
	done   chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher.  Without one no events are sent.
func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.publisher = p } }

// WithPublishTimeout bounds the delivery of one event.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.publishTimeout = d }
}

// WithEventBacklog sets how many events may wait for delivery before new
// ones are dropped.
func WithEventBacklog(n int) Option { return func(s *Service) { s.backlog = n } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New returns a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		publishTimeout: defaultPublishTimeout,
		backlog:        defaultEventBacklog,
		log:            slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher != nil {
		s.events = make(chan queue.RegistrationEvent, max(s.backlog, 1))
		s.done = make(chan struct{})
		go s.dispatch()
	}
	return s
}

// Close stops accepting events and waits until the queued ones are
// delivered or ctx is done.
func (s *Service) Close(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish queues an event for delivery and returns at once; the caller's
// response never waits on the broker.  A full backlog drops the event.
func (s *Service) publish(ctx context.Context, typ string, reg model.Registration, seats []model.Seat) {
	if s.publisher == nil {
		return
	}
	ev := queue.NewRegistrationEvent(typ, reg, seats, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.metrics.IncrementPublishFailed()
		s.log.WarnContext(ctx, "service closed, registration event dropped", "event", typ, "registration_id", reg.ID)
		return
	}
	select {
	case s.events <- ev:
	default:
		s.metrics.IncrementPublishFailed()
		s.log.WarnContext(ctx, "event backlog full, registration event dropped", "event", typ, "registration_id", reg.ID)
	}
}

// dispatch delivers events in order, each under its own timeout.  A
// failure is logged and counted, never returned.
func (s *Service) dispatch() {
	defer close(s.done)
	for ev := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.metrics.IncrementPublishFailed()
			s.log.Warn("publish registration event failed",
				"event", ev.Type, "registration_id", ev.RegistrationID, "error", err)
		}
		cancel()
	}
}

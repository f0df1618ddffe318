package audit

import (
	"context"
	"errors"
	"log/slog"
)

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher buffers events and hands them to sinks from a background worker.
// Emit never blocks a wizard operation: a full buffer drops the event and
// logs it.
type Publisher struct {
	inbox  chan Event
	sinks  []Sink
	logger *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(sinks []Sink, opts ...Option) *Publisher {
	p := &Publisher{
		inbox:  make(chan Event, 256),
		sinks:  sinks,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"session_id", event.SessionID,
		)
		return errors.New("audit buffer full")
	}
}

// Run drains the buffer until ctx is cancelled, then flushes what is left.
// Sink failures are logged; they never stop the worker.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case event := <-p.inbox:
			p.deliver(ctx, event)
		}
	}
}

func (p *Publisher) flush() {
	ctx := context.WithoutCancel(context.Background())
	for {
		select {
		case event := <-p.inbox:
			p.deliver(ctx, event)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "audit sink failed",
				"action", event.Action,
				"session_id", event.SessionID,
				"error", err,
			)
		}
	}
}

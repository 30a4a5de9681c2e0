package notify

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reliefpass/internal/notify/metrics"
	"reliefpass/pkg/requestcontext"
)

// ErrQueueFull is returned when the dispatcher cannot accept more messages.
var ErrQueueFull = errors.New("notification queue full")

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 10 * time.Second
)

// Sender writes one message to a transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher queues notifications and delivers them from Run. Enqueueing
// never blocks; a full queue drops the message and counts it.
type Dispatcher struct {
	sender      Sender
	inbox       chan Message
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.inbox = make(chan Message, n)
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		inbox:       make(chan Message, defaultQueueSize),
		sendTimeout: defaultSendTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) SendVoucher(ctx context.Context, n VoucherIssued) error {
	return d.enqueue(ctx, Message{
		Type:       TypeVoucherIssued,
		Key:        n.RegistrationID,
		OccurredAt: requestcontext.Now(ctx),
		Payload:    n,
	})
}

func (d *Dispatcher) SendRedemptionConfirmation(ctx context.Context, n RedemptionConfirmed) error {
	return d.enqueue(ctx, Message{
		Type:       TypeRedemptionConfirmed,
		Key:        n.RegistrationID,
		OccurredAt: requestcontext.Now(ctx),
		Payload:    n,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, msg Message) error {
	select {
	case d.inbox <- msg:
		d.metrics.IncrementQueued(msg.Type)
		return nil
	default:
		d.metrics.IncrementFailed(msg.Type, "queue_full")
		d.logger.WarnContext(ctx, "notification dropped",
			"type", msg.Type,
			"key", msg.Key,
			"request_id", requestcontext.RequestID(ctx),
		)
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is cancelled, then flushes what is
// left with a fresh deadline per message.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return nil
		case msg := <-d.inbox:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case msg := <-d.inbox:
			d.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, msg); err != nil {
		d.metrics.IncrementFailed(msg.Type, "send")
		d.logger.WarnContext(ctx, "notification delivery failed",
			"type", msg.Type,
			"key", msg.Key,
			"error", err,
		)
		return
	}
	d.metrics.IncrementDelivered(msg.Type)
}

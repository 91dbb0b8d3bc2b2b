package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/campus-booking/internal/model"
)

// Inbox persists in-app notifications.
type Inbox interface {
	Insert(ctx context.Context, n *model.Notification) error
}

// Dispatcher writes each message to the inbox and mails it, fanning out
// over at most workers goroutines.
type Dispatcher struct {
	inbox   Inbox
	mailer  Mailer
	workers int
	log     *zap.Logger
}

func NewDispatcher(inbox Inbox, mailer Mailer, workers int, log *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{inbox: inbox, mailer: mailer, workers: workers, log: log.Named("notify")}
}

// Deliver attempts every message even when some fail and returns the
// first failure.
func (d *Dispatcher) Deliver(ctx context.Context, msgs []Message) error {
	var g errgroup.Group
	g.SetLimit(d.workers)
	for _, m := range msgs {
		m := m
		g.Go(func() error { return d.deliver(ctx, m) })
	}
	return g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, m Message) error {
	n := &model.Notification{UserID: m.RecipientID, Message: m.Body, ReservationID: m.ReservationID}
	if err := d.inbox.Insert(ctx, n); err != nil {
		d.log.Warn("in-app notification failed", zap.Uint64("recipient_id", m.RecipientID), zap.Error(err))
		return fmt.Errorf("notification for user %d: %w", m.RecipientID, err)
	}
	if m.Email == "" || d.mailer == nil {
		return nil
	}
	if err := d.mailer.Send(ctx, m.Email, m.Name, m.Subject, m.Body); err != nil {
		d.log.Warn("e-mail failed", zap.String("to", m.Email), zap.Error(err))
		return fmt.Errorf("mail to %s: %w", m.Email, err)
	}
	return nil
}

// Queue is an in-process Notifier: Notify enqueues and Run delivers in
// the background.
type Queue struct {
	d   *Dispatcher
	ch  chan []Message
	log *zap.Logger
}

func NewQueue(d *Dispatcher, size int) *Queue {
	return &Queue{d: d, ch: make(chan []Message, size), log: d.log}
}

// Notify enqueues msgs without blocking.
func (q *Queue) Notify(_ context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	select {
	case q.ch <- msgs:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued batches until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msgs := <-q.ch:
			if err := q.d.Deliver(ctx, msgs); err != nil {
				q.log.Warn("notification batch incomplete", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		}
	}
}

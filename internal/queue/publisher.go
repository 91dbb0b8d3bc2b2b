package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/notify"
)

const (
	// dialTimeout bounds one connection attempt to the broker.
	dialTimeout = 2 * time.Second
	// publishTimeout bounds one publish once connected.
	publishTimeout = 5 * time.Second
)

// Publisher is a notify.Notifier that publishes NotificationEvents to a
// durable queue.  Notify only enqueues; Run owns the broker connection,
// opens it lazily and reopens it after the broker drops it.
type Publisher struct {
	url     string
	queue   string
	log     *zap.Logger
	backlog chan []byte
	send    func(ctx context.Context, body []byte) error

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher buffers up to size events while the broker is slow or
// unreachable.
func NewPublisher(url, queue string, size int, log *zap.Logger) *Publisher {
	if size < 1 {
		size = 1
	}
	p := &Publisher{url: url, queue: queue, log: log.Named("publisher"), backlog: make(chan []byte, size)}
	p.send = p.publish
	return p
}

// Notify enqueues msgs as one event without blocking.  A full backlog
// returns notify.ErrQueueFull.
func (p *Publisher) Notify(_ context.Context, msgs ...notify.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	body, err := json.Marshal(NotificationEvent{Messages: msgs, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	select {
	case p.backlog <- body:
		return nil
	default:
		p.log.Warn("notification backlog full, event dropped", zap.Int("messages", len(msgs)))
		return notify.ErrQueueFull
	}
}

// Run publishes queued events until ctx is cancelled.  An event that
// fails to publish is logged and dropped.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case body := <-p.backlog:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := p.send(pctx, body); err != nil {
				p.log.Warn("rabbitmq publish failed", zap.Error(err))
			}
			cancel()
		}
	}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

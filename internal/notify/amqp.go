package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/circle-time/internal/application"
)

// EventPublisher publishes booking lifecycle events to RabbitMQ so downstream
// consumers (calendar sync, analytics) can react without coupling to this
// service. One durable queue per event name, persistent deliveries.
type EventPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	now     func() time.Time
}

// NewEventPublisher dials the broker and declares the booking event queues.
func NewEventPublisher(url string) (*EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, queue := range []string{EventConfirmed, EventReminder, EventNoShow, EventCancelled} {
		if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = channel.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}

	return &EventPublisher{conn: conn, channel: channel, now: time.Now}, nil
}

// Close releases the channel and connection.
func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *EventPublisher) publish(ctx context.Context, event string, booking application.Booking) error {
	body, err := json.Marshal(newBookingEvent(event, booking, p.now()))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		"",    // default exchange
		event, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event, err)
	}
	return nil
}

// SendConfirmation implements application.Notifier.
func (p *EventPublisher) SendConfirmation(ctx context.Context, booking application.Booking) error {
	return p.publish(ctx, EventConfirmed, booking)
}

// SendReminder implements application.Notifier.
func (p *EventPublisher) SendReminder(ctx context.Context, booking application.Booking) error {
	return p.publish(ctx, EventReminder, booking)
}

// SendNoShow implements application.Notifier.
func (p *EventPublisher) SendNoShow(ctx context.Context, booking application.Booking) error {
	return p.publish(ctx, EventNoShow, booking)
}

// SendCancellation implements application.Notifier.
func (p *EventPublisher) SendCancellation(ctx context.Context, booking application.Booking) error {
	return p.publish(ctx, EventCancelled, booking)
}

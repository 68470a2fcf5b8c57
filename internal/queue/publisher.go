// Package queue moves booking decisions over RabbitMQ.  The engine
// publishes every CONFIRMED, CANCELLED and HOLD_EXPIRED decision to
// the booking.events queue; the consumer in this package appends them
// to an audit log file.
package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/seatwise/booking-engine/internal/engine"
    "github.com/seatwise/booking-engine/internal/logger"
)

const bookingQueueName = "booking.events"

// Publisher publishes booking events to RabbitMQ.  Each publish dials
// its own connection; booking decisions are rare enough that holding a
// broker connection open buys nothing, and a broken broker never takes
// a request down with it.
type Publisher struct {
    url string
}

// NewPublisher returns a Publisher bound to the given AMQP URL.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url}
}

// PublishBookingEvent delivers one booking event to the booking.events
// queue.  Messages are persistent so they survive broker restarts.
// Errors are logged and returned; callers may ignore them without
// interrupting the booking flow.
func (p *Publisher) PublishBookingEvent(ctx context.Context, ev engine.Event) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        logger.Warn("rabbitmq dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        logger.Warn("rabbitmq channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(bookingQueueName, true, false, false, false, nil); err != nil {
        logger.Warn("rabbitmq queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", bookingQueueName, false, false, pub); err != nil {
        logger.Warn("rabbitmq publish failed", zap.String("booking_id", ev.BookingID), zap.Error(err))
        return err
    }
    return nil
}

package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/seatwise/booking-engine/internal/engine"
    "github.com/seatwise/booking-engine/internal/logger"
)

// StartBookingConsumer connects to RabbitMQ, declares the durable
// booking.events queue and consumes it, appending each event to
// logs/booking.log in a single-line format.  It runs a reconnect loop
// with exponential backoff and keeps running across broker outages;
// undecodable messages are rejected without requeue so a poison
// message cannot wedge the queue.  Cancelling ctx stops the loop and
// returns the context's error.
func StartBookingConsumer(ctx context.Context, url string) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warn("booking consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if err := wait(ctx, backoff); err != nil {
                return err
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn)
        _ = conn.Close()
        if cerr := ctx.Err(); cerr != nil {
            return cerr
        }
        if err != nil {
            logger.Warn("booking consume loop ended", zap.Error(err))
            if err := wait(ctx, 2*time.Second); err != nil {
                return err
            }
        }
    }
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-time.After(d):
        return nil
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warn("booking consumer set QoS failed", zap.Error(err))
    }

    if _, err := ch.QueueDeclare(bookingQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(bookingQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    closed := conn.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return nil
        case cerr := <-closed:
            if cerr != nil {
                return cerr
            }
            return errors.New("connection closed")
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(d.Body); err != nil {
                logger.Warn("booking consumer handle message failed", zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(body []byte) error {
    var ev engine.Event
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "booking.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(auditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// auditLine renders one booking event as a single log line.
func auditLine(ev engine.Event) string {
    return fmt.Sprintf("[%s] %s | booking_id=%s | showing_id=%d | seat_id=%d | user_id=%d | price=%d cents\n",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingID, ev.ShowingID, ev.SeatID, ev.UserID, ev.PriceCents)
}

// Package worker hosts the background loops of the booking engine.
package worker

import (
    "context"
    "time"

    "go.uber.org/zap"

    "github.com/seatwise/booking-engine/internal/logger"
    "github.com/seatwise/booking-engine/internal/seatmap"
)

// ExpiryRecorder ledgers a hold the sweeper reclaimed.
type ExpiryRecorder interface {
    RecordExpiry(ctx context.Context, h seatmap.ExpiredHold) error
}

// HoldSweeper periodically reclaims expired holds from the seat map
// and records each reclaimed hold in the booking ledger.  The inline
// expiry checks already treat those seats as free, so the sweep only
// moves the ledger and the map to the state readers observe anyway.
type HoldSweeper struct {
    seats    *seatmap.Map
    recorder ExpiryRecorder
    interval time.Duration
    stopCh   chan struct{}
    doneCh   chan struct{}
}

// NewHoldSweeper builds a sweeper that runs every interval.
func NewHoldSweeper(seats *seatmap.Map, recorder ExpiryRecorder, interval time.Duration) *HoldSweeper {
    return &HoldSweeper{
        seats:    seats,
        recorder: recorder,
        interval: interval,
        stopCh:   make(chan struct{}),
        doneCh:   make(chan struct{}),
    }
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called.  It is meant to be launched in its own goroutine.
func (s *HoldSweeper) Start(ctx context.Context) {
    logger.Info("hold sweeper started", zap.Duration("interval", s.interval))

    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    defer close(s.doneCh)

    for {
        select {
        case <-ctx.Done():
            logger.Info("hold sweeper stopped", zap.String("reason", "context cancelled"))
            return
        case <-s.stopCh:
            logger.Info("hold sweeper stopped", zap.String("reason", "stop requested"))
            return
        case <-ticker.C:
            s.sweep(ctx)
        }
    }
}

// Stop signals the loop to exit and waits for it to drain.
func (s *HoldSweeper) Stop() {
    close(s.stopCh)
    <-s.doneCh
}

func (s *HoldSweeper) sweep(ctx context.Context) {
    expired := s.seats.Sweep(time.Now().UTC())
    if len(expired) == 0 {
        return
    }
    logger.Info("reclaimed expired holds", zap.Int("count", len(expired)))
    for _, h := range expired {
        if err := s.recorder.RecordExpiry(ctx, h); err != nil {
            logger.Error("failed to ledger expired hold",
                zap.String("booking_id", h.BookingID),
                zap.Uint64("showing_id", h.ShowingID),
                zap.Uint64("seat_id", h.SeatID),
                zap.Error(err),
            )
        }
    }
}

// Package engine is the booking core: it drives every seat through the
// FREE -> HELD -> BOOKED lifecycle, prices the hold up front and
// records each transition in the ledger.  All failures carry a Kind so
// the transport layer maps them to responses without inspecting
// messages.
package engine

import (
    "context"
    "errors"
    "time"

    "github.com/seatwise/booking-engine/internal/catalog"
    "github.com/seatwise/booking-engine/internal/model"
    "github.com/seatwise/booking-engine/internal/repository"
    "github.com/seatwise/booking-engine/internal/seatmap"
)

// Catalog is the slice of the catalog service the engine needs:
// showing lookup and pricing.
type Catalog interface {
    GetShowing(ctx context.Context, id uint64) (*model.Showing, error)
    GetSeat(ctx context.Context, id uint64) (*model.Seat, error)
    PriceFor(ctx context.Context, showingID, seatID uint64) (uint32, error)
}

// Ledger persists booking records and their append-only event trail.
type Ledger interface {
    CreateHold(ctx context.Context, rec *model.BookingRecord, requestID string) error
    MarkConfirmed(ctx context.Context, bookingID string) error
    MarkCancelled(ctx context.Context, bookingID, eventType string) (bool, error)
    AppendRejected(ctx context.Context, showingID, seatID, userID uint64, priceCents uint32, requestID string) error
    GetByID(ctx context.Context, bookingID string) (*model.BookingRecord, error)
    GetHoldByRequestID(ctx context.Context, requestID string) (*model.BookingRecord, error)
}

// Event is the payload the engine hands to the publisher after a
// booking decision.
type Event struct {
    Type       string    `json:"type"`
    BookingID  string    `json:"booking_id"`
    ShowingID  uint64    `json:"showing_id"`
    SeatID     uint64    `json:"seat_id"`
    UserID     uint64    `json:"user_id"`
    PriceCents uint32    `json:"price_cents"`
    OccurredAt time.Time `json:"occurred_at"`
}

// Publisher fans booking decisions out to interested consumers.
// Publishing is best effort; a failed publish never rolls a booking
// back.
type Publisher interface {
    PublishBookingEvent(ctx context.Context, ev Event) error
}

// Engine coordinates the seat map, the catalog and the ledger.
type Engine struct {
    catalog   Catalog
    seats     *seatmap.Map
    ledger    Ledger
    publisher Publisher
    holdTTL   time.Duration
}

// New constructs an Engine.  publisher may be nil, in which case no
// events are emitted.
func New(cat Catalog, seats *seatmap.Map, ledger Ledger, publisher Publisher, holdTTL time.Duration) *Engine {
    if cat == nil || seats == nil || ledger == nil {
        panic("nil dependency passed to engine.New")
    }
    if holdTTL <= 0 {
        panic("hold TTL must be positive")
    }
    return &Engine{catalog: cat, seats: seats, ledger: ledger, publisher: publisher, holdTTL: holdTTL}
}

// BookingRequest carries the inputs for RequestBooking.  RequestID is
// an optional idempotency key; replays under the same key return the
// original hold instead of acquiring a second one.
type BookingRequest struct {
    ShowingID uint64
    SeatID    uint64
    UserID    uint64
    RequestID string
}

// Receipt is what a successful hold returns to the caller.
type Receipt struct {
    BookingID  string    `json:"booking_id"`
    ShowingID  uint64    `json:"showing_id"`
    SeatID     uint64    `json:"seat_id"`
    SeatCode   string    `json:"seat_code"`
    PriceCents uint32    `json:"price_cents"`
    ExpiresAt  time.Time `json:"expires_at"`
}

// RequestBooking attempts to hold a seat for a showing.  The price is
// fixed at hold time from the showing's base price and the seat type's
// premium.  Exactly one of any number of concurrent requests for the
// same (showing, seat) succeeds; the losers are written to the ledger
// as REJECTED and returned a SeatUnavailable failure.
func (e *Engine) RequestBooking(ctx context.Context, req BookingRequest) (*Receipt, error) {
    if req.ShowingID == 0 || req.SeatID == 0 || req.UserID == 0 {
        return nil, failf(KindInvalidInput, nil, "showing, seat and user are required")
    }
    if req.RequestID != "" {
        prior, err := e.ledger.GetHoldByRequestID(ctx, req.RequestID)
        if err == nil {
            return e.receipt(ctx, prior)
        }
        if !errors.Is(err, repository.ErrBookingNotFound) {
            return nil, err
        }
    }
    showing, err := e.catalog.GetShowing(ctx, req.ShowingID)
    if err != nil {
        return nil, classify(err, "showing %d", req.ShowingID)
    }
    if showing.Closed(time.Now().UTC()) {
        return nil, failf(KindShowingClosed, nil, "showing %d is not open for booking", req.ShowingID)
    }
    price, err := e.catalog.PriceFor(ctx, req.ShowingID, req.SeatID)
    if err != nil {
        return nil, classify(err, "pricing seat %d", req.SeatID)
    }
    hold, err := e.seats.TryHold(ctx, req.ShowingID, req.SeatID, req.UserID, e.holdTTL)
    if err != nil {
        switch {
        case errors.Is(err, seatmap.ErrSeatUnavailable):
            if lerr := e.ledger.AppendRejected(ctx, req.ShowingID, req.SeatID, req.UserID, price, req.RequestID); lerr != nil {
                return nil, lerr
            }
            return nil, failf(KindSeatUnavailable, err, "seat %d is taken for showing %d", req.SeatID, req.ShowingID)
        case errors.Is(err, seatmap.ErrUnknownSeat):
            return nil, failf(KindInvalidInput, err, "seat %d does not belong to showing %d", req.SeatID, req.ShowingID)
        }
        return nil, err
    }
    rec := &model.BookingRecord{
        ID:         hold.BookingID,
        ShowingID:  req.ShowingID,
        SeatID:     req.SeatID,
        UserID:     req.UserID,
        PriceCents: price,
        ExpiresAt:  hold.ExpiresAt,
    }
    if err := e.ledger.CreateHold(ctx, rec, req.RequestID); err != nil {
        // The hold is not durable, give the seat back.
        e.seats.Release(hold.BookingID)
        if errors.Is(err, repository.ErrSeatActive) {
            // The unique active-booking key caught a record the seat
            // map did not know about.  Same outcome as losing the
            // in-memory race.
            if lerr := e.ledger.AppendRejected(ctx, req.ShowingID, req.SeatID, req.UserID, price, req.RequestID); lerr != nil {
                return nil, lerr
            }
            return nil, failf(KindSeatUnavailable, err, "seat %d is taken for showing %d", req.SeatID, req.ShowingID)
        }
        return nil, err
    }
    return e.receipt(ctx, rec)
}

// ConfirmBooking finalizes a hold into a booked seat.  Confirming an
// already confirmed booking is a no-op and returns the record again.
// A hold past its expiry is released, ledgered as HOLD_EXPIRED and
// reported as a HoldExpired failure.
func (e *Engine) ConfirmBooking(ctx context.Context, bookingID string, userID uint64) (*model.BookingRecord, error) {
    rec, err := e.ledger.GetByID(ctx, bookingID)
    if err != nil {
        return nil, classify(err, "booking %s", bookingID)
    }
    if rec.UserID != userID {
        return nil, failf(KindInvalidInput, nil, "booking %s belongs to another user", bookingID)
    }
    switch rec.Status {
    case model.BookingConfirmed:
        return rec, nil
    case model.BookingCancelled:
        return nil, failf(KindHoldExpired, nil, "booking %s is no longer held", bookingID)
    }
    err = e.seats.Confirm(bookingID)
    switch {
    case err == nil:
        if err := e.ledger.MarkConfirmed(ctx, bookingID); err != nil {
            return nil, err
        }
        rec.Status = model.BookingConfirmed
        e.publish(ctx, model.EventConfirmed, rec)
        return rec, nil
    case errors.Is(err, seatmap.ErrHoldExpired), errors.Is(err, seatmap.ErrHoldNotFound):
        // Either the hold lapsed or the seat map lost it across a
        // restart.  Both read as an expired hold for the caller.
        if transitioned, lerr := e.ledger.MarkCancelled(ctx, bookingID, model.EventHoldExpired); lerr != nil {
            return nil, lerr
        } else if transitioned {
            e.publish(ctx, model.EventHoldExpired, rec)
        }
        return nil, failf(KindHoldExpired, err, "hold for booking %s expired", bookingID)
    }
    return nil, err
}

// CancelBooking releases a held or booked seat and marks the record
// CANCELLED.  Cancelling an already cancelled booking is a no-op.
func (e *Engine) CancelBooking(ctx context.Context, bookingID string, userID uint64) error {
    rec, err := e.ledger.GetByID(ctx, bookingID)
    if err != nil {
        return classify(err, "booking %s", bookingID)
    }
    if rec.UserID != userID {
        return failf(KindInvalidInput, nil, "booking %s belongs to another user", bookingID)
    }
    // Ledger first.  Freeing the seat before the record leaves HELD
    // would let a racing hold collide with the unique active-booking
    // key.
    transitioned, err := e.ledger.MarkCancelled(ctx, bookingID, model.EventCancelled)
    if err != nil {
        return err
    }
    e.seats.Release(bookingID)
    if transitioned {
        e.publish(ctx, model.EventCancelled, rec)
    }
    return nil
}

// RecordExpiry ledgers a hold the sweeper reclaimed.  The seat is
// already free; only the record and the event trail are updated.
func (e *Engine) RecordExpiry(ctx context.Context, h seatmap.ExpiredHold) error {
    rec, err := e.ledger.GetByID(ctx, h.BookingID)
    if err != nil {
        if errors.Is(err, repository.ErrBookingNotFound) {
            return nil
        }
        return err
    }
    transitioned, err := e.ledger.MarkCancelled(ctx, h.BookingID, model.EventHoldExpired)
    if err != nil {
        return err
    }
    if transitioned {
        e.publish(ctx, model.EventHoldExpired, rec)
    }
    return nil
}

// GetBooking returns the booking record with the given ID.
func (e *Engine) GetBooking(ctx context.Context, bookingID string) (*model.BookingRecord, error) {
    rec, err := e.ledger.GetByID(ctx, bookingID)
    if err != nil {
        return nil, classify(err, "booking %s", bookingID)
    }
    return rec, nil
}

func (e *Engine) receipt(ctx context.Context, rec *model.BookingRecord) (*Receipt, error) {
    seat, err := e.catalog.GetSeat(ctx, rec.SeatID)
    if err != nil {
        return nil, err
    }
    return &Receipt{
        BookingID:  rec.ID,
        ShowingID:  rec.ShowingID,
        SeatID:     rec.SeatID,
        SeatCode:   seat.Code(),
        PriceCents: rec.PriceCents,
        ExpiresAt:  rec.ExpiresAt,
    }, nil
}

func (e *Engine) publish(ctx context.Context, eventType string, rec *model.BookingRecord) {
    if e.publisher == nil {
        return
    }
    _ = e.publisher.PublishBookingEvent(ctx, Event{
        Type:       eventType,
        BookingID:  rec.ID,
        ShowingID:  rec.ShowingID,
        SeatID:     rec.SeatID,
        UserID:     rec.UserID,
        PriceCents: rec.PriceCents,
        OccurredAt: time.Now().UTC(),
    })
}

// classify maps catalog and repository sentinels onto engine kinds.
// Errors that match no sentinel pass through untouched.
func classify(err error, format string, args ...interface{}) error {
    switch {
    case errors.Is(err, repository.ErrShowingNotFound),
        errors.Is(err, repository.ErrSeatNotFound),
        errors.Is(err, repository.ErrSeatTypeNotFound),
        errors.Is(err, repository.ErrShowroomNotFound),
        errors.Is(err, repository.ErrBookingNotFound):
        return failf(KindNotFound, err, format, args...)
    case errors.Is(err, catalog.ErrInvalidInput):
        return failf(KindInvalidInput, err, format, args...)
    case errors.Is(err, catalog.ErrScheduleConflict):
        return failf(KindScheduleConflict, err, format, args...)
    }
    return err
}

package model

import "time"

// Booking statuses.  At most one booking per (showing, seat) pair may
// be in HELD or CONFIRMED status at any instant; CANCELLED bookings
// free the seat again.
const (
    BookingHeld      = "HELD"
    BookingConfirmed = "CONFIRMED"
    BookingCancelled = "CANCELLED"
)

// BookingRecord tracks the outcome of a successful hold on a seat for
// a showing.  It is created in HELD status when the hold is acquired
// and transitions to CONFIRMED on finalisation or CANCELLED on
// expiry or explicit cancellation.  Rejected booking attempts never
// produce a BookingRecord; they only appear in the event ledger.
//
// Fields:
//  ID         – booking identifier (UUID), doubles as the hold token.
//  ShowingID  – showing being booked.
//  SeatID     – seat being booked.
//  UserID     – user who requested the booking.
//  Status     – HELD, CONFIRMED or CANCELLED.
//  PriceCents – price charged for the seat in cents.
//  ExpiresAt  – when an unconfirmed hold lapses.
//  CreatedAt  – when the hold was acquired.
//  DecidedAt  – when the booking left HELD status (nil while held).
type BookingRecord struct {
    ID         string     // booking_records.id
    ShowingID  uint64     // booking_records.showing_id
    SeatID     uint64     // booking_records.seat_id
    UserID     uint64     // booking_records.user_id
    Status     string     // booking_records.status
    PriceCents uint32     // booking_records.price_cents
    ExpiresAt  time.Time  // booking_records.expires_at
    CreatedAt  time.Time  // booking_records.created_at
    DecidedAt  *time.Time // booking_records.decided_at (nullable)
}

// Ledger event types.  Every booking attempt leaves at least one
// event; the ledger is append-only.
const (
    EventHoldCreated = "HOLD_CREATED"
    EventHoldExpired = "HOLD_EXPIRED"
    EventConfirmed   = "CONFIRMED"
    EventCancelled   = "CANCELLED"
    EventRejected    = "REJECTED"
)

// LedgerEvent is a single entry in the append-only booking ledger.
// BookingID is empty for REJECTED attempts that never acquired a
// hold.  RequestID carries the caller-supplied idempotency key when
// one was provided.
type LedgerEvent struct {
    ID         uint64    // booking_events.id
    Type       string    // booking_events.event_type
    BookingID  string    // booking_events.booking_id
    RequestID  string    // booking_events.request_id
    ShowingID  uint64    // booking_events.showing_id
    SeatID     uint64    // booking_events.seat_id
    UserID     uint64    // booking_events.user_id
    PriceCents uint32    // booking_events.price_cents
    CreatedAt  time.Time // booking_events.created_at
}

package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/go-sql-driver/mysql"

    "github.com/seatwise/booking-engine/internal/model"
    "github.com/seatwise/booking-engine/internal/query"
)

// LedgerRepo persists booking records and the append-only event
// ledger.  booking_records carries the current status of every hold
// that was ever acquired; booking_events is never updated in place, so
// concurrent appends are safe.  A generated column plus a unique key
// on (showing_id, seat_id, active) lets the database reject a second
// active booking for the same seat even if the in-memory seat map is
// ever bypassed.
type LedgerRepo struct {
    db *sql.DB
}

// NewLedgerRepo returns a new LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// CreateHold inserts a HELD booking record together with its
// HOLD_CREATED ledger event in one transaction.  requestID may be
// empty when the caller did not supply an idempotency key.
//
// The seat map reclaims an expired hold inline, before any sweep has
// run, so the lapsed record for the same seat may still sit at HELD
// and occupy the unique active-booking key.  CreateHold cancels such
// a record first, inside the same transaction, so the new hold can
// land.  A duplicate-key failure past that point means a genuinely
// live booking covers the seat and surfaces as ErrSeatActive.
func (r *LedgerRepo) CreateHold(ctx context.Context, rec *model.BookingRecord, requestID string) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := expireLapsedHoldTx(ctx, tx, rec.ShowingID, rec.SeatID); err != nil {
        return err
    }
    const ins = `INSERT INTO booking_records (id, showing_id, seat_id, user_id, status, price_cents, expires_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, ins,
        rec.ID, rec.ShowingID, rec.SeatID, rec.UserID, model.BookingHeld, rec.PriceCents, rec.ExpiresAt.UTC(),
    ); err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == 1062 {
            return ErrSeatActive
        }
        return err
    }
    if err := appendEventTx(ctx, tx, model.LedgerEvent{
        Type:       model.EventHoldCreated,
        BookingID:  rec.ID,
        RequestID:  requestID,
        ShowingID:  rec.ShowingID,
        SeatID:     rec.SeatID,
        UserID:     rec.UserID,
        PriceCents: rec.PriceCents,
    }); err != nil {
        return err
    }
    const sel = `SELECT created_at FROM booking_records WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, rec.ID).Scan(&rec.CreatedAt); err != nil {
        return err
    }
    rec.Status = model.BookingHeld
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// MarkConfirmed transitions a HELD booking record to CONFIRMED and
// appends the CONFIRMED event.  It returns ErrBookingNotFound when no
// record with the given ID exists.
func (r *LedgerRepo) MarkConfirmed(ctx context.Context, bookingID string) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    rec, err := getRecordTx(ctx, tx, bookingID)
    if err != nil {
        return err
    }
    const upd = `UPDATE booking_records SET status = ?, decided_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
    if _, err := tx.ExecContext(ctx, upd, model.BookingConfirmed, bookingID, model.BookingHeld); err != nil {
        return err
    }
    if err := appendEventTx(ctx, tx, model.LedgerEvent{
        Type:       model.EventConfirmed,
        BookingID:  rec.ID,
        ShowingID:  rec.ShowingID,
        SeatID:     rec.SeatID,
        UserID:     rec.UserID,
        PriceCents: rec.PriceCents,
    }); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// MarkCancelled transitions a HELD or CONFIRMED booking record to
// CANCELLED and appends an event of the given type (CANCELLED for an
// explicit cancel, HOLD_EXPIRED for a lapsed hold).  It reports
// whether a transition actually happened; cancelling an already
// cancelled or unknown booking is a no-op, which keeps the operation
// idempotent for callers.
func (r *LedgerRepo) MarkCancelled(ctx context.Context, bookingID, eventType string) (bool, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    rec, err := getRecordTx(ctx, tx, bookingID)
    if err != nil {
        if errors.Is(err, ErrBookingNotFound) {
            return false, nil
        }
        return false, err
    }
    const upd = `UPDATE booking_records SET status = ?, decided_at = UTC_TIMESTAMP()
                 WHERE id = ? AND status IN (?, ?)`
    res, err := tx.ExecContext(ctx, upd, model.BookingCancelled, bookingID, model.BookingHeld, model.BookingConfirmed)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if n == 0 {
        return false, nil
    }
    if err := appendEventTx(ctx, tx, model.LedgerEvent{
        Type:       eventType,
        BookingID:  rec.ID,
        ShowingID:  rec.ShowingID,
        SeatID:     rec.SeatID,
        UserID:     rec.UserID,
        PriceCents: rec.PriceCents,
    }); err != nil {
        return false, err
    }
    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    return true, nil
}

// AppendRejected records a booking attempt that lost the race for a
// seat.  Rejected attempts have no booking record; the event is the
// only trace they leave.
func (r *LedgerRepo) AppendRejected(ctx context.Context, showingID, seatID, userID uint64, priceCents uint32, requestID string) error {
    const q = `INSERT INTO booking_events (event_type, booking_id, request_id, showing_id, seat_id, user_id, price_cents)
               VALUES (?, '', ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, model.EventRejected, requestID, showingID, seatID, userID, priceCents)
    return err
}

// GetByID retrieves a booking record by its ID.  It returns
// ErrBookingNotFound if there is no matching row.
func (r *LedgerRepo) GetByID(ctx context.Context, bookingID string) (*model.BookingRecord, error) {
    return getRecord(ctx, r.db, bookingID)
}

// GetHoldByRequestID finds the booking record created under the given
// idempotency key, if any.  Callers replaying a request discover the
// prior outcome here instead of double-booking.  It returns
// ErrBookingNotFound when the key was never used for a successful
// hold.
func (r *LedgerRepo) GetHoldByRequestID(ctx context.Context, requestID string) (*model.BookingRecord, error) {
    const q = `SELECT booking_id FROM booking_events
               WHERE request_id = ? AND event_type = ? AND booking_id <> ''
               ORDER BY id DESC LIMIT 1`
    var bookingID string
    err := r.db.QueryRowContext(ctx, q, requestID, model.EventHoldCreated).Scan(&bookingID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return getRecord(ctx, r.db, bookingID)
}

// EventRows is a lazy cursor over ledger events in chronological
// order, backed by the underlying sql.Rows.  The sequence is finite
// and restartable by issuing the history query again.
type EventRows struct {
    rows *sql.Rows
    cur  model.LedgerEvent
    err  error
}

// Next advances the cursor.  It returns false when the sequence is
// exhausted or an error occurred; inspect Err afterwards.
func (c *EventRows) Next() bool {
    if c.err != nil || !c.rows.Next() {
        if c.err == nil {
            c.err = c.rows.Err()
        }
        return false
    }
    var ev model.LedgerEvent
    if err := c.rows.Scan(
        &ev.ID, &ev.Type, &ev.BookingID, &ev.RequestID,
        &ev.ShowingID, &ev.SeatID, &ev.UserID, &ev.PriceCents, &ev.CreatedAt,
    ); err != nil {
        c.err = err
        return false
    }
    c.cur = ev
    return true
}

// Event returns the row the cursor currently points at.
func (c *EventRows) Event() model.LedgerEvent { return c.cur }

// Err returns the first error encountered during iteration.
func (c *EventRows) Err() error { return c.err }

// Close releases the underlying rows.
func (c *EventRows) Close() error { return c.rows.Close() }

const eventColumns = `id, event_type, booking_id, request_id, showing_id, seat_id, user_id, price_cents, created_at`

// HistoryByShowing produces all ledger events for a showing, oldest
// first.
func (r *LedgerRepo) HistoryByShowing(ctx context.Context, showingID uint64) (query.EventCursor, error) {
    q := `SELECT ` + eventColumns + ` FROM booking_events WHERE showing_id = ? ORDER BY id ASC`
    rows, err := r.db.QueryContext(ctx, q, showingID)
    if err != nil {
        return nil, err
    }
    return &EventRows{rows: rows}, nil
}

// HistoryByUser produces all ledger events for a user, oldest first.
func (r *LedgerRepo) HistoryByUser(ctx context.Context, userID uint64) (query.EventCursor, error) {
    q := `SELECT ` + eventColumns + ` FROM booking_events WHERE user_id = ? ORDER BY id ASC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    return &EventRows{rows: rows}, nil
}

type queryRower interface {
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, bookingID string) (*model.BookingRecord, error) {
    const sel = `SELECT id, showing_id, seat_id, user_id, status, price_cents, expires_at, created_at, decided_at
                 FROM booking_records WHERE id = ?`
    var rec model.BookingRecord
    var decided sql.NullTime
    err := q.QueryRowContext(ctx, sel, bookingID).Scan(
        &rec.ID, &rec.ShowingID, &rec.SeatID, &rec.UserID,
        &rec.Status, &rec.PriceCents, &rec.ExpiresAt, &rec.CreatedAt, &decided,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    if decided.Valid {
        t := decided.Time.UTC()
        rec.DecidedAt = &t
    }
    return &rec, nil
}

func getRecordTx(ctx context.Context, tx *sql.Tx, bookingID string) (*model.BookingRecord, error) {
    return getRecord(ctx, tx, bookingID)
}

// expireLapsedHoldTx cancels a HELD record for (showingID, seatID)
// whose expiry has passed, appending the HOLD_EXPIRED event.  The row
// is locked so a concurrent CreateHold for the same seat serializes
// here instead of racing for the unique key.  At most one such record
// can exist; the unique active-booking key guarantees it.
func expireLapsedHoldTx(ctx context.Context, tx *sql.Tx, showingID, seatID uint64) error {
    const sel = `SELECT id, user_id, price_cents FROM booking_records
                 WHERE showing_id = ? AND seat_id = ? AND status = ? AND expires_at <= UTC_TIMESTAMP()
                 FOR UPDATE`
    var (
        bookingID  string
        userID     uint64
        priceCents uint32
    )
    err := tx.QueryRowContext(ctx, sel, showingID, seatID, model.BookingHeld).Scan(&bookingID, &userID, &priceCents)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil
        }
        return err
    }
    const upd = `UPDATE booking_records SET status = ?, decided_at = UTC_TIMESTAMP() WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upd, model.BookingCancelled, bookingID); err != nil {
        return err
    }
    return appendEventTx(ctx, tx, model.LedgerEvent{
        Type:       model.EventHoldExpired,
        BookingID:  bookingID,
        ShowingID:  showingID,
        SeatID:     seatID,
        UserID:     userID,
        PriceCents: priceCents,
    })
}

func appendEventTx(ctx context.Context, tx *sql.Tx, ev model.LedgerEvent) error {
    const q = `INSERT INTO booking_events (event_type, booking_id, request_id, showing_id, seat_id, user_id, price_cents)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    _, err := tx.ExecContext(ctx, q,
        ev.Type, ev.BookingID, ev.RequestID, ev.ShowingID, ev.SeatID, ev.UserID, ev.PriceCents,
    )
    return err
}

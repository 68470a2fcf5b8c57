// Package repository contains data access logic for showing operations.
// A Showing represents a scheduled screening of a movie in a showroom.
// All DATETIME columns are stored in UTC; the MySQL DSN uses
// parseTime=true so they scan directly into time.Time.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/seatwise/booking-engine/internal/catalog"
    "github.com/seatwise/booking-engine/internal/model"
)

// ShowingRepo manages persistence for showings.
type ShowingRepo struct {
    db *sql.DB
}

// NewShowingRepo constructs a ShowingRepo with the given DB handle.
func NewShowingRepo(db *sql.DB) *ShowingRepo {
    return &ShowingRepo{db: db}
}

// Create inserts a new showing and populates the generated ID and
// DB-default fields (is_screening, timestamps) on the given struct.
// Overlap validation is the catalog service's responsibility; the
// repository only persists.
func (r *ShowingRepo) Create(ctx context.Context, s *model.Showing) error {
    const q = `INSERT INTO showings (showroom_id, movie_title, starts_at, ends_at, base_price_cents) VALUES (?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, s.ShowroomID, s.MovieTitle, s.StartsAt.UTC(), s.EndsAt.UTC(), s.BasePriceCents)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    const sel = `SELECT id, showroom_id, movie_title, starts_at, ends_at, base_price_cents, is_screening, created_at, updated_at
                 FROM showings WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, s.ID).Scan(
        &s.ID, &s.ShowroomID, &s.MovieTitle, &s.StartsAt, &s.EndsAt,
        &s.BasePriceCents, &s.IsScreening, &s.CreatedAt, &s.UpdatedAt,
    )
}

// GetByID retrieves a showing by its ID.  It returns
// ErrShowingNotFound if there is no matching row.
func (r *ShowingRepo) GetByID(ctx context.Context, id uint64) (*model.Showing, error) {
    const q = `SELECT id, showroom_id, movie_title, starts_at, ends_at, base_price_cents, is_screening, created_at, updated_at
               FROM showings WHERE id = ?`
    var s model.Showing
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.ShowroomID, &s.MovieTitle, &s.StartsAt, &s.EndsAt,
        &s.BasePriceCents, &s.IsScreening, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowingNotFound
        }
        return nil, err
    }
    return &s, nil
}

// FindOverlapping finds all screening showings in the specified
// showroom whose interval overlaps [start, end).  A showing overlaps
// when it starts before the proposed end and ends after the proposed
// start.  Withdrawn showings do not block the slot.  It returns an
// empty slice when no overlaps are found.
func (r *ShowingRepo) FindOverlapping(ctx context.Context, showroomID uint64, start, end time.Time) ([]model.Showing, error) {
    const q = `SELECT id, showroom_id, movie_title, starts_at, ends_at, base_price_cents, is_screening, created_at, updated_at
               FROM showings
               WHERE showroom_id = ? AND is_screening = TRUE AND starts_at < ? AND ends_at > ?
               ORDER BY starts_at ASC`
    rows, err := r.db.QueryContext(ctx, q, showroomID, end.UTC(), start.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.Showing, 0)
    for rows.Next() {
        var s model.Showing
        if err := rows.Scan(
            &s.ID, &s.ShowroomID, &s.MovieTitle, &s.StartsAt, &s.EndsAt,
            &s.BasePriceCents, &s.IsScreening, &s.CreatedAt, &s.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        result = append(result, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// Withdraw marks a showing as no longer screening.  New bookings for a
// withdrawn showing are rejected.  It returns ErrShowingNotFound when
// the showing does not exist.
func (r *ShowingRepo) Withdraw(ctx context.Context, id uint64) error {
    const q = `UPDATE showings SET is_screening = FALSE WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Either missing or already withdrawn; distinguish for the caller.
        if _, err := r.GetByID(ctx, id); err != nil {
            return err
        }
    }
    return nil
}

// ShowingRows is a lazy cursor over a showing listing, backed by the
// underlying sql.Rows.  Callers iterate with Next, read the current
// row with Showing and must Close when done.  Calling List again
// restarts the sequence.
type ShowingRows struct {
    rows *sql.Rows
    cur  model.Showing
    err  error
}

// Next advances the cursor.  It returns false when the sequence is
// exhausted or an error occurred; inspect Err afterwards.
func (c *ShowingRows) Next() bool {
    if c.err != nil || !c.rows.Next() {
        if c.err == nil {
            c.err = c.rows.Err()
        }
        return false
    }
    var s model.Showing
    if err := c.rows.Scan(
        &s.ID, &s.ShowroomID, &s.MovieTitle, &s.StartsAt, &s.EndsAt,
        &s.BasePriceCents, &s.IsScreening, &s.CreatedAt, &s.UpdatedAt,
    ); err != nil {
        c.err = err
        return false
    }
    c.cur = s
    return true
}

// Showing returns the row the cursor currently points at.
func (c *ShowingRows) Showing() model.Showing { return c.cur }

// Err returns the first error encountered during iteration.
func (c *ShowingRows) Err() error { return c.err }

// Close releases the underlying rows.
func (c *ShowingRows) Close() error { return c.rows.Close() }

// List produces a lazy, finite cursor over showings matching the
// filter, ordered by start time ascending.  The sequence is
// restartable by calling List again.
func (r *ShowingRepo) List(ctx context.Context, f catalog.ShowingFilter) (catalog.ShowingCursor, error) {
    q := `SELECT id, showroom_id, movie_title, starts_at, ends_at, base_price_cents, is_screening, created_at, updated_at
          FROM showings WHERE 1=1`
    args := make([]interface{}, 0, 3)
    if f.OnlyScreening {
        q += ` AND is_screening = TRUE`
    }
    if !f.From.IsZero() {
        q += ` AND ends_at > ?`
        args = append(args, f.From.UTC())
    }
    if !f.To.IsZero() {
        q += ` AND starts_at < ?`
        args = append(args, f.To.UTC())
    }
    q += ` ORDER BY starts_at ASC`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    return &ShowingRows{rows: rows}, nil
}

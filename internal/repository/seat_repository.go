package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/seatwise/booking-engine/internal/model"
)

// SeatRepo encapsulates database operations for seats.  A seat belongs
// to exactly one showroom and references a seat type for pricing.  The
// (showroom_id, row_label, seat_number) triple is unique.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
    return &SeatRepo{db: db}
}

// CreateBulk inserts multiple seats in one statement.  CreatedAt and
// UpdatedAt default in the DB.  The ID fields of the passed structures
// are not populated.  Passing an empty slice has no effect.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO seats (showroom_id, seat_type_id, row_label, seat_number) VALUES `
    args := make([]interface{}, 0, len(seats)*4)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, s.ShowroomID, s.SeatTypeID, s.RowLabel, s.SeatNumber)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// GetByID retrieves a seat by its ID.  It returns ErrSeatNotFound if
// there is no matching row.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
    const q = `SELECT id, showroom_id, seat_type_id, row_label, seat_number, created_at, updated_at
               FROM seats WHERE id = ?`
    var s model.Seat
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.ShowroomID, &s.SeatTypeID, &s.RowLabel, &s.SeatNumber, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrSeatNotFound
        }
        return nil, err
    }
    return &s, nil
}

// ListByShowroom returns all seats of a showroom ordered by row and
// seat number for deterministic output.  When the showroom has no
// seats an empty slice is returned.
func (r *SeatRepo) ListByShowroom(ctx context.Context, showroomID uint64) ([]model.Seat, error) {
    const q = `SELECT id, showroom_id, seat_type_id, row_label, seat_number, created_at, updated_at
               FROM seats
               WHERE showroom_id = ?
               ORDER BY row_label, seat_number`
    rows, err := r.db.QueryContext(ctx, q, showroomID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.Seat, 0)
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(
            &s.ID, &s.ShowroomID, &s.SeatTypeID, &s.RowLabel, &s.SeatNumber, &s.CreatedAt, &s.UpdatedAt,
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

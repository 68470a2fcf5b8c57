package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/seatwise/booking-engine/internal/model"
)

// SeatTypeRepo encapsulates database operations for seat_types.  Seat
// types are immutable reference data; there is no update or delete.
type SeatTypeRepo struct {
    db *sql.DB
}

// NewSeatTypeRepo constructs a SeatTypeRepo given a DB handle.
func NewSeatTypeRepo(db *sql.DB) *SeatTypeRepo {
    return &SeatTypeRepo{db: db}
}

// Create inserts a new seat type and populates the generated ID and
// default fields on the given struct.
func (r *SeatTypeRepo) Create(ctx context.Context, st *model.SeatType) error {
    const q = `INSERT INTO seat_types (label, premium_percent) VALUES (?, ?)`
    res, err := r.db.ExecContext(ctx, q, st.Label, st.PremiumPercent)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    st.ID = uint64(id)
    const sel = `SELECT id, label, premium_percent, created_at, updated_at FROM seat_types WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, st.ID).Scan(&st.ID, &st.Label, &st.PremiumPercent, &st.CreatedAt, &st.UpdatedAt)
}

// GetByID retrieves a seat type by its ID.  It returns
// ErrSeatTypeNotFound if there is no matching row.
func (r *SeatTypeRepo) GetByID(ctx context.Context, id uint64) (*model.SeatType, error) {
    const q = `SELECT id, label, premium_percent, created_at, updated_at FROM seat_types WHERE id = ?`
    var st model.SeatType
    err := r.db.QueryRowContext(ctx, q, id).Scan(&st.ID, &st.Label, &st.PremiumPercent, &st.CreatedAt, &st.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrSeatTypeNotFound
        }
        return nil, err
    }
    return &st, nil
}

// ListAll returns all seat types ordered by label.
func (r *SeatTypeRepo) ListAll(ctx context.Context) ([]model.SeatType, error) {
    const q = `SELECT id, label, premium_percent, created_at, updated_at FROM seat_types ORDER BY label`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.SeatType, 0)
    for rows.Next() {
        var st model.SeatType
        if err := rows.Scan(&st.ID, &st.Label, &st.PremiumPercent, &st.CreatedAt, &st.UpdatedAt); err != nil {
            return nil, err
        }
        result = append(result, st)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

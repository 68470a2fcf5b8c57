package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/seatwise/booking-engine/internal/model"
)

// ShowroomRepo provides data access to the showrooms table.  Showrooms
// are reference data: created during administrative setup and read by
// everything else.  All timestamp fields are stored in UTC.
type ShowroomRepo struct {
    db *sql.DB
}

// NewShowroomRepo returns a new ShowroomRepo bound to the given database.
func NewShowroomRepo(db *sql.DB) *ShowroomRepo { return &ShowroomRepo{db: db} }

// Create inserts a new showroom and assigns the generated ID back to
// the struct.  Default fields (timestamps) are populated by querying
// the freshly inserted row.
func (r *ShowroomRepo) Create(ctx context.Context, s *model.Showroom) error {
    const q = `INSERT INTO showrooms (name) VALUES (?)`
    res, err := r.db.ExecContext(ctx, q, s.Name)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    const sel = `SELECT id, name, created_at, updated_at FROM showrooms WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a showroom by its ID.  It returns
// ErrShowroomNotFound if there is no matching row.
func (r *ShowroomRepo) GetByID(ctx context.Context, id uint64) (*model.Showroom, error) {
    const q = `SELECT id, name, created_at, updated_at FROM showrooms WHERE id = ?`
    var s model.Showroom
    err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowroomNotFound
        }
        return nil, err
    }
    return &s, nil
}

// ListAll returns all showrooms ordered by name.  When none exist it
// returns an empty slice and nil error.
func (r *ShowroomRepo) ListAll(ctx context.Context) ([]model.Showroom, error) {
    const q = `SELECT id, name, created_at, updated_at FROM showrooms ORDER BY name`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.Showroom, 0)
    for rows.Next() {
        var s model.Showroom
        if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
            return nil, err
        }
        result = append(result, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

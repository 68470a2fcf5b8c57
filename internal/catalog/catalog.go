// Package catalog is the reference-data side of the booking engine:
// showrooms, seats, seat types, showing schedules and per-seat pricing.
// It owns the validation that keeps the schedule consistent (no two
// overlapping showings in one showroom) and the price computation from
// base price and seat-type premium.  Persistence is delegated to store
// interfaces implemented by the repository layer.
package catalog

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/seatwise/booking-engine/internal/model"
)

// ShowroomStore persists showrooms.
type ShowroomStore interface {
    Create(ctx context.Context, s *model.Showroom) error
    GetByID(ctx context.Context, id uint64) (*model.Showroom, error)
    ListAll(ctx context.Context) ([]model.Showroom, error)
}

// SeatStore persists seats.
type SeatStore interface {
    CreateBulk(ctx context.Context, seats []model.Seat) error
    GetByID(ctx context.Context, id uint64) (*model.Seat, error)
    ListByShowroom(ctx context.Context, showroomID uint64) ([]model.Seat, error)
}

// SeatTypeStore persists seat types.
type SeatTypeStore interface {
    Create(ctx context.Context, st *model.SeatType) error
    GetByID(ctx context.Context, id uint64) (*model.SeatType, error)
    ListAll(ctx context.Context) ([]model.SeatType, error)
}

// ShowingFilter restricts the rows produced by ShowingStore.List.
// Zero-valued times mean unbounded on that side.
type ShowingFilter struct {
    OnlyScreening bool
    From          time.Time
    To            time.Time
}

// ShowingCursor is a lazy, finite cursor over a showing listing.
// Callers iterate with Next, read the current row with Showing and
// must Close when done.  The sequence is restartable by issuing the
// listing again.
type ShowingCursor interface {
    Next() bool
    Showing() model.Showing
    Err() error
    Close() error
}

// ShowingStore persists showings.
type ShowingStore interface {
    Create(ctx context.Context, s *model.Showing) error
    GetByID(ctx context.Context, id uint64) (*model.Showing, error)
    FindOverlapping(ctx context.Context, showroomID uint64, start, end time.Time) ([]model.Showing, error)
    Withdraw(ctx context.Context, id uint64) error
    List(ctx context.Context, f ShowingFilter) (ShowingCursor, error)
}

// Store is the Catalog Store: durable reference data plus showing
// scheduling.  All mutating operations validate before touching the
// backing stores, so a rejected request leaves no partial state.
type Store struct {
    showrooms ShowroomStore
    seats     SeatStore
    seatTypes SeatTypeStore
    showings  ShowingStore
}

// NewStore constructs a Store with the provided backing stores.  All
// dependencies must be non-nil.
func NewStore(showrooms ShowroomStore, seats SeatStore, seatTypes SeatTypeStore, showings ShowingStore) *Store {
    if showrooms == nil || seats == nil || seatTypes == nil || showings == nil {
        panic("nil store passed to catalog.NewStore")
    }
    return &Store{showrooms: showrooms, seats: seats, seatTypes: seatTypes, showings: showings}
}

// CreateShowroom registers a new showroom.  The name must be non-empty.
func (s *Store) CreateShowroom(ctx context.Context, name string) (*model.Showroom, error) {
    name = strings.TrimSpace(name)
    if name == "" {
        return nil, fmt.Errorf("showroom name is required: %w", ErrInvalidInput)
    }
    room := &model.Showroom{Name: name}
    if err := s.showrooms.Create(ctx, room); err != nil {
        return nil, err
    }
    return room, nil
}

// GetShowroom returns the showroom with the given ID.
func (s *Store) GetShowroom(ctx context.Context, id uint64) (*model.Showroom, error) {
    return s.showrooms.GetByID(ctx, id)
}

// ListShowrooms returns all showrooms.
func (s *Store) ListShowrooms(ctx context.Context) ([]model.Showroom, error) {
    return s.showrooms.ListAll(ctx)
}

// CreateSeatType registers a new seat type with the given percentage
// premium.  The label must be non-empty; the premium may be zero.
func (s *Store) CreateSeatType(ctx context.Context, label string, premiumPercent uint32) (*model.SeatType, error) {
    label = strings.TrimSpace(label)
    if label == "" {
        return nil, fmt.Errorf("seat type label is required: %w", ErrInvalidInput)
    }
    st := &model.SeatType{Label: label, PremiumPercent: premiumPercent}
    if err := s.seatTypes.Create(ctx, st); err != nil {
        return nil, err
    }
    return st, nil
}

// GetSeatType returns the seat type with the given ID.
func (s *Store) GetSeatType(ctx context.Context, id uint64) (*model.SeatType, error) {
    return s.seatTypes.GetByID(ctx, id)
}

// SeatSpec describes one seat to add to a showroom.
type SeatSpec struct {
    SeatTypeID uint64
    RowLabel   string
    SeatNumber uint32
}

// AddSeats bulk-creates seats in a showroom.  The showroom's layout is
// immutable once showings are scheduled against it, so the call is
// rejected when any showing exists for the room.  Every spec must name
// an existing seat type and carry a row label and a positive seat
// number.
func (s *Store) AddSeats(ctx context.Context, showroomID uint64, specs []SeatSpec) ([]model.Seat, error) {
    if len(specs) == 0 {
        return nil, fmt.Errorf("no seats given: %w", ErrInvalidInput)
    }
    if _, err := s.showrooms.GetByID(ctx, showroomID); err != nil {
        return nil, err
    }
    scheduled, err := s.showings.FindOverlapping(ctx, showroomID, time.Time{}, farFuture())
    if err != nil {
        return nil, err
    }
    if len(scheduled) > 0 {
        return nil, fmt.Errorf("showroom %d already hosts showings: %w", showroomID, ErrInvalidInput)
    }
    seats := make([]model.Seat, 0, len(specs))
    typeSeen := make(map[uint64]struct{})
    for _, sp := range specs {
        if strings.TrimSpace(sp.RowLabel) == "" || sp.SeatNumber == 0 {
            return nil, fmt.Errorf("seat needs a row label and a positive number: %w", ErrInvalidInput)
        }
        if _, ok := typeSeen[sp.SeatTypeID]; !ok {
            if _, err := s.seatTypes.GetByID(ctx, sp.SeatTypeID); err != nil {
                return nil, err
            }
            typeSeen[sp.SeatTypeID] = struct{}{}
        }
        seats = append(seats, model.Seat{
            ShowroomID: showroomID,
            SeatTypeID: sp.SeatTypeID,
            RowLabel:   strings.TrimSpace(sp.RowLabel),
            SeatNumber: sp.SeatNumber,
        })
    }
    if err := s.seats.CreateBulk(ctx, seats); err != nil {
        return nil, err
    }
    return s.seats.ListByShowroom(ctx, showroomID)
}

// GetSeat returns the seat with the given ID.
func (s *Store) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
    return s.seats.GetByID(ctx, id)
}

// SeatsForShowing returns all seats of the showroom the showing runs
// in.  The seat map uses this to initialise a showing's availability.
func (s *Store) SeatsForShowing(ctx context.Context, showingID uint64) ([]model.Seat, error) {
    showing, err := s.showings.GetByID(ctx, showingID)
    if err != nil {
        return nil, err
    }
    return s.seats.ListByShowroom(ctx, showing.ShowroomID)
}

// SeatIDsForShowing returns only the seat IDs of SeatsForShowing.  It
// satisfies the seat map's SeatSource interface.
func (s *Store) SeatIDsForShowing(ctx context.Context, showingID uint64) ([]uint64, error) {
    seats, err := s.SeatsForShowing(ctx, showingID)
    if err != nil {
        return nil, err
    }
    ids := make([]uint64, 0, len(seats))
    for _, seat := range seats {
        ids = append(ids, seat.ID)
    }
    return ids, nil
}

// ShowingParams carries the inputs for CreateShowing.
type ShowingParams struct {
    ShowroomID     uint64
    MovieTitle     string
    StartsAt       time.Time
    EndsAt         time.Time
    BasePriceCents uint32
}

// CreateShowing schedules a new showing.  It fails with
// ErrInvalidInput when the end does not come after the start, the base
// price is not positive or the title is empty, and with
// ErrScheduleConflict when [StartsAt, EndsAt) overlaps an existing
// screening showing in the same showroom.
func (s *Store) CreateShowing(ctx context.Context, p ShowingParams) (*model.Showing, error) {
    if strings.TrimSpace(p.MovieTitle) == "" {
        return nil, fmt.Errorf("movie title is required: %w", ErrInvalidInput)
    }
    if !p.EndsAt.After(p.StartsAt) {
        return nil, fmt.Errorf("ends_at must be after starts_at: %w", ErrInvalidInput)
    }
    if p.BasePriceCents == 0 {
        return nil, fmt.Errorf("base price must be positive: %w", ErrInvalidInput)
    }
    if _, err := s.showrooms.GetByID(ctx, p.ShowroomID); err != nil {
        return nil, err
    }
    overlaps, err := s.showings.FindOverlapping(ctx, p.ShowroomID, p.StartsAt, p.EndsAt)
    if err != nil {
        return nil, err
    }
    if len(overlaps) > 0 {
        return nil, fmt.Errorf("showroom %d already screens %q in that slot: %w",
            p.ShowroomID, overlaps[0].MovieTitle, ErrScheduleConflict)
    }
    showing := &model.Showing{
        ShowroomID:     p.ShowroomID,
        MovieTitle:     strings.TrimSpace(p.MovieTitle),
        StartsAt:       p.StartsAt.UTC(),
        EndsAt:         p.EndsAt.UTC(),
        BasePriceCents: p.BasePriceCents,
    }
    if err := s.showings.Create(ctx, showing); err != nil {
        return nil, err
    }
    return showing, nil
}

// GetShowing returns the showing with the given ID.
func (s *Store) GetShowing(ctx context.Context, id uint64) (*model.Showing, error) {
    return s.showings.GetByID(ctx, id)
}

// WithdrawShowing marks a showing as no longer screening.
func (s *Store) WithdrawShowing(ctx context.Context, id uint64) error {
    return s.showings.Withdraw(ctx, id)
}

// ListShowings produces a lazy cursor over showings matching the
// filter, ordered by start time ascending.
func (s *Store) ListShowings(ctx context.Context, f ShowingFilter) (ShowingCursor, error) {
    return s.showings.List(ctx, f)
}

// PriceFor computes the price in cents for booking the given seat in
// the given showing: the showing's base price plus the seat type's
// percentage premium, rounded half-up to the cent.  A seat that does
// not belong to the showing's showroom is an ErrInvalidInput.
func (s *Store) PriceFor(ctx context.Context, showingID, seatID uint64) (uint32, error) {
    showing, err := s.showings.GetByID(ctx, showingID)
    if err != nil {
        return 0, err
    }
    seat, err := s.seats.GetByID(ctx, seatID)
    if err != nil {
        return 0, err
    }
    if seat.ShowroomID != showing.ShowroomID {
        return 0, fmt.Errorf("seat %d is not in showroom %d: %w", seatID, showing.ShowroomID, ErrInvalidInput)
    }
    st, err := s.seatTypes.GetByID(ctx, seat.SeatTypeID)
    if err != nil {
        return 0, err
    }
    return premiumPriceCents(showing.BasePriceCents, st.PremiumPercent), nil
}

// premiumPriceCents applies a percentage premium to a base price in
// cents, rounding half-up to the smallest currency unit.
func premiumPriceCents(baseCents, premiumPercent uint32) uint32 {
    return uint32((uint64(baseCents)*uint64(100+premiumPercent) + 50) / 100)
}

// farFuture is the upper bound used when asking "does this showroom
// host any showing at all" through the overlap query.
func farFuture() time.Time {
    return time.Now().UTC().AddDate(100, 0, 0)
}

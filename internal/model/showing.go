package model

import "time"

// Showing represents a scheduled screening of a movie in a particular
// showroom.  Two showings in the same showroom may never overlap in
// time.  A showing stops accepting bookings once it is withdrawn
// (IsScreening=false) or its end time has passed.
//
// Fields:
//  ID             – primary key identifier.
//  ShowroomID     – showroom hosting the screening.
//  MovieTitle     – name of the movie being shown.
//  StartsAt       – when the screening begins (UTC).
//  EndsAt         – when the screening ends (must be after StartsAt).
//  BasePriceCents – base price in cents for a standard seat.
//  IsScreening    – whether the showing is currently offered for booking.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Showing struct {
    ID             uint64    // showings.id
    ShowroomID     uint64    // showings.showroom_id
    MovieTitle     string    // showings.movie_title
    StartsAt       time.Time // showings.starts_at
    EndsAt         time.Time // showings.ends_at
    BasePriceCents uint32    // showings.base_price_cents
    IsScreening    bool      // showings.is_screening
    CreatedAt      time.Time // showings.created_at
    UpdatedAt      time.Time // showings.updated_at
}

// Closed reports whether the showing no longer accepts new bookings,
// either because it was withdrawn or because it has ended.
func (s Showing) Closed(now time.Time) bool {
    return !s.IsScreening || !s.EndsAt.After(now)
}

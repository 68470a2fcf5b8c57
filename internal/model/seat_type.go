package model

import "time"

// SeatType categorises seats (standard, VIP, couple, ...) and carries
// the percentage premium applied on top of a showing's base price.
// A premium of 50 means the seat costs 50% more than the base price.
// Seat types are immutable reference data.
//
// Fields:
//  ID             – primary key identifier.
//  Label          – human-readable type name (e.g. "VIP").
//  PremiumPercent – non-negative surcharge percentage.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type SeatType struct {
    ID             uint64    // seat_types.id
    Label          string    // seat_types.label
    PremiumPercent uint32    // seat_types.premium_percent
    CreatedAt      time.Time // seat_types.created_at
    UpdatedAt      time.Time // seat_types.updated_at
}

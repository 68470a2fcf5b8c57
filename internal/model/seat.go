package model

import (
    "fmt"
    "time"
)

// Seat describes a physical seat in a showroom.  Seats are uniquely
// identified by their showroom, row label and seat number, and
// reference a seat type for pricing.  Seats are immutable once the
// showroom hosts showings.
//
// Fields:
//  ID         – primary key identifier.
//  ShowroomID – showroom to which this seat belongs.
//  SeatTypeID – seat type used to compute the price premium.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
    ID         uint64    // seats.id
    ShowroomID uint64    // seats.showroom_id
    SeatTypeID uint64    // seats.seat_type_id
    RowLabel   string    // seats.row_label
    SeatNumber uint32    // seats.seat_number
    CreatedAt  time.Time // seats.created_at
    UpdatedAt  time.Time // seats.updated_at
}

// Code returns the display code printed on tickets, row label followed
// by the seat number ("A12").  It is unique within a showroom.
func (s Seat) Code() string {
    return fmt.Sprintf("%s%d", s.RowLabel, s.SeatNumber)
}

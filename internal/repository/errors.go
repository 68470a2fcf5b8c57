// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// catalog service and handlers to distinguish between different failure
// scenarios without inspecting driver-specific errors.
package repository

import "errors"

// ErrShowroomNotFound indicates that a showroom was not located in the DB.
var ErrShowroomNotFound = errors.New("showroom not found")

// ErrSeatNotFound indicates that a seat was not located in the DB.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatTypeNotFound indicates that a seat type was not located in the DB.
var ErrSeatTypeNotFound = errors.New("seat type not found")

// ErrShowingNotFound indicates that a showing was not located in the DB.
var ErrShowingNotFound = errors.New("showing not found")

// ErrBookingNotFound indicates that a booking record was not located in
// the DB.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSeatActive indicates the unique active-booking key rejected a new
// hold: a live HELD or CONFIRMED record already covers the seat.
var ErrSeatActive = errors.New("seat already has an active booking")

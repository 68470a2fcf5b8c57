package model

import "time"

// Showroom represents a single auditorium in the cinema.  Its seat
// layout is immutable once showings have been scheduled against it.
// This struct corresponds to a row in the `showrooms` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique name of the showroom.
//  CreatedAt – timestamp when the showroom was created.
//  UpdatedAt – timestamp of last update.
type Showroom struct {
    ID        uint64    // showrooms.id
    Name      string    // showrooms.name
    CreatedAt time.Time // showrooms.created_at
    UpdatedAt time.Time // showrooms.updated_at
}

// Package seatmap holds the authoritative per-showing seat availability
// state.  It is the single point the reservation engine mutates: every
// hold, confirmation and release for a (showing, seat) pair goes through
// a per-key critical section here.  Keys are spread over a fixed set of
// shards so that unrelated seats never contend with one another; there
// is no lock covering the whole map.
package seatmap

import (
    "context"
    "encoding/binary"
    "errors"
    "sync"
    "time"

    "github.com/cespare/xxhash/v2"
    "github.com/google/uuid"
)

// Sentinel errors surfaced by seat map transitions.  Callers decide on
// retry semantics: ErrSeatUnavailable means another booking won the
// race, ErrHoldExpired means the caller missed its confirmation window.
var (
    ErrSeatUnavailable = errors.New("seat unavailable")
    ErrHoldExpired     = errors.New("hold expired")
    ErrHoldNotFound    = errors.New("hold not found")
    ErrUnknownSeat     = errors.New("seat not part of showing")
)

// Seat availability statuses as exposed by Snapshot.
const (
    StatusFree   = "FREE"
    StatusHeld   = "HELD"
    StatusBooked = "BOOKED"
)

const shardCount = 64

// SeatSource supplies the seat IDs of the showroom a showing runs in.
// The seat map consults it once per showing, the first time that
// showing is touched, to initialise every seat to FREE.
type SeatSource interface {
    SeatIDsForShowing(ctx context.Context, showingID uint64) ([]uint64, error)
}

// Key identifies one seat within one showing.
type Key struct {
    ShowingID uint64
    SeatID    uint64
}

// Hold is the token returned by TryHold.  The booking ID doubles as
// the hold token; the expiry tells the caller how long it has to
// confirm.
type Hold struct {
    BookingID string
    ExpiresAt time.Time
}

// Availability describes the state of a single seat for display.
// HeldBy and Expiry are only meaningful while Status is HELD, and
// BookingID while Status is HELD or BOOKED.
type Availability struct {
    Status    string
    BookingID string
    HeldBy    uint64
    Expiry    time.Time
}

// ExpiredHold reports a hold reclaimed by Sweep so the caller can
// record the expiry in the booking ledger.
type ExpiredHold struct {
    BookingID string
    ShowingID uint64
    SeatID    uint64
    UserID    uint64
}

type seatState struct {
    status    string
    bookingID string
    heldBy    uint64
    expiresAt time.Time
}

type shard struct {
    mu    sync.Mutex
    seats map[Key]*seatState
}

// Map is the in-memory seat availability store.  All transitions on a
// given key are serialised by that key's shard mutex; transitions on
// keys in different shards proceed concurrently.  Expired holds are
// reclaimed inline whenever the seat is touched, and additionally by
// periodic Sweep calls; both paths converge to the same state.
type Map struct {
    source SeatSource
    shards [shardCount]shard

    // inits guards lazy per-showing initialisation; bookings indexes
    // hold tokens back to their key for Confirm/Release.
    inits    sync.Map // showingID -> *showingInit
    bookings sync.Map // bookingID -> Key
}

type showingInit struct {
    once sync.Once
    err  error
}

// New returns a Map that initialises showings lazily from src.
func New(src SeatSource) *Map {
    m := &Map{source: src}
    for i := range m.shards {
        m.shards[i].seats = make(map[Key]*seatState)
    }
    return m
}

func (m *Map) shardFor(k Key) *shard {
    var b [16]byte
    binary.LittleEndian.PutUint64(b[0:8], k.ShowingID)
    binary.LittleEndian.PutUint64(b[8:16], k.SeatID)
    return &m.shards[xxhash.Sum64(b[:])%shardCount]
}

// ensureShowing loads the showing's seat set on first touch.  A failed
// load is not cached so a later call can retry.
func (m *Map) ensureShowing(ctx context.Context, showingID uint64) error {
    v, _ := m.inits.LoadOrStore(showingID, &showingInit{})
    init := v.(*showingInit)
    init.once.Do(func() {
        seatIDs, err := m.source.SeatIDsForShowing(ctx, showingID)
        if err != nil {
            init.err = err
            m.inits.Delete(showingID)
            return
        }
        for _, sid := range seatIDs {
            k := Key{ShowingID: showingID, SeatID: sid}
            sh := m.shardFor(k)
            sh.mu.Lock()
            if _, ok := sh.seats[k]; !ok {
                sh.seats[k] = &seatState{status: StatusFree}
            }
            sh.mu.Unlock()
        }
    })
    return init.err
}

// reclaimLocked transitions an expired hold back to FREE.  The caller
// must hold the shard mutex.
func (m *Map) reclaimLocked(st *seatState, now time.Time) {
    if st.status == StatusHeld && !st.expiresAt.After(now) {
        m.bookings.Delete(st.bookingID)
        *st = seatState{status: StatusFree}
    }
}

// TryHold atomically transitions a FREE seat to HELD for the given
// user and returns the hold token.  If the seat is already held or
// booked it returns ErrSeatUnavailable; exactly one of two racing
// callers for the same key observes success.  An expired hold on the
// seat is reclaimed inline before the check.
func (m *Map) TryHold(ctx context.Context, showingID, seatID, userID uint64, holdDuration time.Duration) (Hold, error) {
    if err := m.ensureShowing(ctx, showingID); err != nil {
        return Hold{}, err
    }
    k := Key{ShowingID: showingID, SeatID: seatID}
    sh := m.shardFor(k)
    sh.mu.Lock()
    defer sh.mu.Unlock()
    st, ok := sh.seats[k]
    if !ok {
        return Hold{}, ErrUnknownSeat
    }
    now := time.Now().UTC()
    m.reclaimLocked(st, now)
    if st.status != StatusFree {
        return Hold{}, ErrSeatUnavailable
    }
    h := Hold{BookingID: uuid.NewString(), ExpiresAt: now.Add(holdDuration)}
    st.status = StatusHeld
    st.bookingID = h.BookingID
    st.heldBy = userID
    st.expiresAt = h.ExpiresAt
    m.bookings.Store(h.BookingID, k)
    return h, nil
}

// Confirm transitions a held seat to BOOKED.  A hold past its expiry
// is released back to FREE and ErrHoldExpired is returned.  Confirming
// a booking that is already BOOKED is a no-op; an unknown booking ID
// yields ErrHoldNotFound.
func (m *Map) Confirm(bookingID string) error {
    v, ok := m.bookings.Load(bookingID)
    if !ok {
        return ErrHoldNotFound
    }
    k := v.(Key)
    sh := m.shardFor(k)
    sh.mu.Lock()
    defer sh.mu.Unlock()
    st, ok := sh.seats[k]
    if !ok || st.bookingID != bookingID {
        return ErrHoldNotFound
    }
    if st.status == StatusBooked {
        return nil
    }
    if !st.expiresAt.After(time.Now().UTC()) {
        m.bookings.Delete(bookingID)
        *st = seatState{status: StatusFree}
        return ErrHoldExpired
    }
    st.status = StatusBooked
    st.expiresAt = time.Time{}
    return nil
}

// Release frees a held or booked seat.  It is idempotent: releasing a
// booking that was never recorded, already released or expired is a
// no-op.  It reports whether a transition actually happened.
func (m *Map) Release(bookingID string) bool {
    v, ok := m.bookings.Load(bookingID)
    if !ok {
        return false
    }
    k := v.(Key)
    sh := m.shardFor(k)
    sh.mu.Lock()
    defer sh.mu.Unlock()
    st, ok := sh.seats[k]
    if !ok || st.bookingID != bookingID {
        return false
    }
    m.bookings.Delete(bookingID)
    *st = seatState{status: StatusFree}
    return true
}

// Snapshot returns the availability of every seat in the showing,
// keyed by seat ID.  Expired holds are reported as FREE even when no
// sweep has reclaimed them yet.  The snapshot is assembled shard by
// shard and may be momentarily stale relative to concurrent holds.
func (m *Map) Snapshot(ctx context.Context, showingID uint64) (map[uint64]Availability, error) {
    if err := m.ensureShowing(ctx, showingID); err != nil {
        return nil, err
    }
    now := time.Now().UTC()
    out := make(map[uint64]Availability)
    for i := range m.shards {
        sh := &m.shards[i]
        sh.mu.Lock()
        for k, st := range sh.seats {
            if k.ShowingID != showingID {
                continue
            }
            av := Availability{Status: st.status, BookingID: st.bookingID, HeldBy: st.heldBy, Expiry: st.expiresAt}
            if st.status == StatusHeld && !st.expiresAt.After(now) {
                av = Availability{Status: StatusFree}
            }
            out[k.SeatID] = av
        }
        sh.mu.Unlock()
    }
    return out, nil
}

// Sweep reclaims every expired hold across all showings and returns
// the holds that were released so the caller can ledger them.  It is
// intended to be run periodically; seats it frees are exactly those
// the inline expiry checks would already treat as FREE.
func (m *Map) Sweep(now time.Time) []ExpiredHold {
    var expired []ExpiredHold
    for i := range m.shards {
        sh := &m.shards[i]
        sh.mu.Lock()
        for k, st := range sh.seats {
            if st.status == StatusHeld && !st.expiresAt.After(now) {
                expired = append(expired, ExpiredHold{
                    BookingID: st.bookingID,
                    ShowingID: k.ShowingID,
                    SeatID:    k.SeatID,
                    UserID:    st.heldBy,
                })
                m.bookings.Delete(st.bookingID)
                *st = seatState{status: StatusFree}
            }
        }
        sh.mu.Unlock()
    }
    return expired
}

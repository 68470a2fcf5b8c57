package engine

import (
    "context"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/seatwise/booking-engine/internal/model"
    "github.com/seatwise/booking-engine/internal/repository"
    "github.com/seatwise/booking-engine/internal/seatmap"
)

// The engine tests run against the real seat map and in-memory fakes
// for the catalog and the ledger, so the hold lifecycle is exercised
// end to end without a database.

type fakeCatalog struct {
    showings map[uint64]model.Showing
    seats    map[uint64]model.Seat
    prices   map[[2]uint64]uint32
    priceErr error
}

func (c *fakeCatalog) GetShowing(_ context.Context, id uint64) (*model.Showing, error) {
    s, ok := c.showings[id]
    if !ok {
        return nil, repository.ErrShowingNotFound
    }
    return &s, nil
}

func (c *fakeCatalog) GetSeat(_ context.Context, id uint64) (*model.Seat, error) {
    s, ok := c.seats[id]
    if !ok {
        return nil, repository.ErrSeatNotFound
    }
    return &s, nil
}

func (c *fakeCatalog) PriceFor(_ context.Context, showingID, seatID uint64) (uint32, error) {
    if c.priceErr != nil {
        return 0, c.priceErr
    }
    p, ok := c.prices[[2]uint64{showingID, seatID}]
    if !ok {
        return 0, repository.ErrSeatNotFound
    }
    return p, nil
}

func (c *fakeCatalog) SeatIDsForShowing(_ context.Context, showingID uint64) ([]uint64, error) {
    showing, ok := c.showings[showingID]
    if !ok {
        return nil, repository.ErrShowingNotFound
    }
    var ids []uint64
    for id, seat := range c.seats {
        if seat.ShowroomID == showing.ShowroomID {
            ids = append(ids, id)
        }
    }
    return ids, nil
}

type rejectedEntry struct {
    showingID, seatID, userID uint64
    priceCents                uint32
}

// fakeLedger mirrors the repository's behavior around the unique
// active-booking key: a new hold reclaims a lapsed HELD record for the
// same seat and is rejected when a live record still covers it.
type fakeLedger struct {
    mu       sync.Mutex
    records  map[string]*model.BookingRecord
    byReqID  map[string]string
    rejected []rejectedEntry
    events   []string
    onCancel func()
}

func newFakeLedger() *fakeLedger {
    return &fakeLedger{records: make(map[string]*model.BookingRecord), byReqID: make(map[string]string)}
}

func (l *fakeLedger) CreateHold(_ context.Context, rec *model.BookingRecord, requestID string) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    for _, other := range l.records {
        if other.ShowingID != rec.ShowingID || other.SeatID != rec.SeatID {
            continue
        }
        switch other.Status {
        case model.BookingConfirmed:
            return repository.ErrSeatActive
        case model.BookingHeld:
            if other.ExpiresAt.After(time.Now().UTC()) {
                return repository.ErrSeatActive
            }
            other.Status = model.BookingCancelled
            l.events = append(l.events, model.EventHoldExpired)
        }
    }
    rec.Status = model.BookingHeld
    rec.CreatedAt = time.Now().UTC()
    cp := *rec
    l.records[rec.ID] = &cp
    if requestID != "" {
        l.byReqID[requestID] = rec.ID
    }
    l.events = append(l.events, model.EventHoldCreated)
    return nil
}

func (l *fakeLedger) MarkConfirmed(_ context.Context, bookingID string) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    rec, ok := l.records[bookingID]
    if !ok {
        return repository.ErrBookingNotFound
    }
    rec.Status = model.BookingConfirmed
    l.events = append(l.events, model.EventConfirmed)
    return nil
}

func (l *fakeLedger) MarkCancelled(_ context.Context, bookingID, eventType string) (bool, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    if l.onCancel != nil {
        l.onCancel()
    }
    rec, ok := l.records[bookingID]
    if !ok || rec.Status == model.BookingCancelled {
        return false, nil
    }
    rec.Status = model.BookingCancelled
    l.events = append(l.events, eventType)
    return true, nil
}

func (l *fakeLedger) AppendRejected(_ context.Context, showingID, seatID, userID uint64, priceCents uint32, _ string) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.rejected = append(l.rejected, rejectedEntry{showingID, seatID, userID, priceCents})
    l.events = append(l.events, model.EventRejected)
    return nil
}

func (l *fakeLedger) GetByID(_ context.Context, bookingID string) (*model.BookingRecord, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    rec, ok := l.records[bookingID]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *rec
    return &cp, nil
}

func (l *fakeLedger) GetHoldByRequestID(_ context.Context, requestID string) (*model.BookingRecord, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    id, ok := l.byReqID[requestID]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *l.records[id]
    return &cp, nil
}

type capturedPublisher struct {
    mu     sync.Mutex
    events []Event
}

func (p *capturedPublisher) PublishBookingEvent(_ context.Context, ev Event) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return nil
}

func (p *capturedPublisher) types() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    out := make([]string, len(p.events))
    for i, ev := range p.events {
        out[i] = ev.Type
    }
    return out
}

const (
    showingID = uint64(7)
    seatID    = uint64(42)
    userAlice = uint64(1)
    userBob   = uint64(2)
)

func newTestEngine(t *testing.T, holdTTL time.Duration) (*Engine, *fakeLedger, *capturedPublisher) {
    t.Helper()
    cat := &fakeCatalog{
        showings: map[uint64]model.Showing{
            showingID: {
                ID: showingID, ShowroomID: 1, MovieTitle: "Dune",
                StartsAt:       time.Now().UTC().Add(time.Hour),
                EndsAt:         time.Now().UTC().Add(3 * time.Hour),
                BasePriceCents: 10000, IsScreening: true,
            },
        },
        seats: map[uint64]model.Seat{
            seatID: {ID: seatID, ShowroomID: 1, SeatTypeID: 1, RowLabel: "A", SeatNumber: 12},
        },
        prices: map[[2]uint64]uint32{{showingID, seatID}: 15000},
    }
    ledger := newFakeLedger()
    pub := &capturedPublisher{}
    eng := New(cat, seatmap.New(cat), ledger, pub, holdTTL)
    return eng, ledger, pub
}

func TestRequestBooking_Success(t *testing.T) {
    eng, ledger, _ := newTestEngine(t, time.Minute)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)
    assert.NotEmpty(t, receipt.BookingID)
    assert.Equal(t, "A12", receipt.SeatCode)
    assert.Equal(t, uint32(15000), receipt.PriceCents)
    assert.True(t, receipt.ExpiresAt.After(time.Now().UTC()))

    rec, err := ledger.GetByID(ctx, receipt.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingHeld, rec.Status)
    assert.Equal(t, uint32(15000), rec.PriceCents)
}

func TestRequestBooking_SeatTaken(t *testing.T) {
    eng, ledger, _ := newTestEngine(t, time.Minute)
    ctx := context.Background()

    _, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)

    _, err = eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userBob})
    kind, ok := KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindSeatUnavailable, kind)

    require.Len(t, ledger.rejected, 1)
    assert.Equal(t, rejectedEntry{showingID, seatID, userBob, 15000}, ledger.rejected[0])
}

func TestRequestBooking_Idempotent(t *testing.T) {
    eng, ledger, _ := newTestEngine(t, time.Minute)
    ctx := context.Background()
    req := BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice, RequestID: "req-1"}

    first, err := eng.RequestBooking(ctx, req)
    require.NoError(t, err)
    replay, err := eng.RequestBooking(ctx, req)
    require.NoError(t, err)

    assert.Equal(t, first.BookingID, replay.BookingID)
    assert.Len(t, ledger.records, 1)
}

func TestRequestBooking_UnknownShowing(t *testing.T) {
    eng, _, _ := newTestEngine(t, time.Minute)

    _, err := eng.RequestBooking(context.Background(), BookingRequest{ShowingID: 999, SeatID: seatID, UserID: userAlice})
    kind, ok := KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindNotFound, kind)
}

func TestRequestBooking_ShowingClosed(t *testing.T) {
    eng, _, _ := newTestEngine(t, time.Minute)
    cat := eng.catalog.(*fakeCatalog)

    withdrawn := cat.showings[showingID]
    withdrawn.IsScreening = false
    cat.showings[showingID] = withdrawn

    _, err := eng.RequestBooking(context.Background(), BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    kind, ok := KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindShowingClosed, kind)

    ended := cat.showings[showingID]
    ended.IsScreening = true
    ended.StartsAt = time.Now().UTC().Add(-3 * time.Hour)
    ended.EndsAt = time.Now().UTC().Add(-time.Hour)
    cat.showings[showingID] = ended

    _, err = eng.RequestBooking(context.Background(), BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    kind, ok = KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindShowingClosed, kind)
}

func TestRequestBooking_InvalidInput(t *testing.T) {
    eng, _, _ := newTestEngine(t, time.Minute)

    _, err := eng.RequestBooking(context.Background(), BookingRequest{ShowingID: showingID, SeatID: seatID})
    kind, ok := KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindInvalidInput, kind)
}

func TestConfirmBooking_Lifecycle(t *testing.T) {
    eng, ledger, pub := newTestEngine(t, time.Minute)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)

    rec, err := eng.ConfirmBooking(ctx, receipt.BookingID, userAlice)
    require.NoError(t, err)
    assert.Equal(t, model.BookingConfirmed, rec.Status)

    // Idempotent: a second confirm returns the record again.
    again, err := eng.ConfirmBooking(ctx, receipt.BookingID, userAlice)
    require.NoError(t, err)
    assert.Equal(t, model.BookingConfirmed, again.Status)

    stored, err := ledger.GetByID(ctx, receipt.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingConfirmed, stored.Status)
    assert.Equal(t, []string{model.EventConfirmed}, pub.types())
}

func TestConfirmBooking_WrongUser(t *testing.T) {
    eng, _, _ := newTestEngine(t, time.Minute)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)

    _, err = eng.ConfirmBooking(ctx, receipt.BookingID, userBob)
    kind, ok := KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindInvalidInput, kind)
}

func TestConfirmBooking_Expired(t *testing.T) {
    eng, ledger, pub := newTestEngine(t, 10*time.Millisecond)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)
    time.Sleep(20 * time.Millisecond)

    _, err = eng.ConfirmBooking(ctx, receipt.BookingID, userAlice)
    kind, ok := KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindHoldExpired, kind)

    rec, err := ledger.GetByID(ctx, receipt.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCancelled, rec.Status)
    assert.Equal(t, []string{model.EventHoldExpired}, pub.types())

    // The seat is free again for another user.
    _, err = eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userBob})
    require.NoError(t, err)
}

func TestConfirmBooking_Unknown(t *testing.T) {
    eng, _, _ := newTestEngine(t, time.Minute)

    _, err := eng.ConfirmBooking(context.Background(), "no-such-booking", userAlice)
    kind, ok := KindOf(err)
    require.True(t, ok)
    assert.Equal(t, KindNotFound, kind)
}

func TestCancelBooking(t *testing.T) {
    eng, ledger, pub := newTestEngine(t, time.Minute)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)
    require.NoError(t, eng.CancelBooking(ctx, receipt.BookingID, userAlice))

    rec, err := ledger.GetByID(ctx, receipt.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCancelled, rec.Status)

    // Idempotent: cancelling again is a no-op and publishes nothing new.
    require.NoError(t, eng.CancelBooking(ctx, receipt.BookingID, userAlice))
    assert.Equal(t, []string{model.EventCancelled}, pub.types())

    // The seat is bookable again.
    _, err = eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userBob})
    require.NoError(t, err)
}

func TestCancelBooking_ConfirmedSeatFreed(t *testing.T) {
    eng, _, _ := newTestEngine(t, time.Minute)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)
    _, err = eng.ConfirmBooking(ctx, receipt.BookingID, userAlice)
    require.NoError(t, err)

    require.NoError(t, eng.CancelBooking(ctx, receipt.BookingID, userAlice))

    _, err = eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userBob})
    require.NoError(t, err)
}

func TestRecordExpiry(t *testing.T) {
    eng, ledger, pub := newTestEngine(t, 10*time.Millisecond)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)
    time.Sleep(20 * time.Millisecond)

    expired := eng.seats.Sweep(time.Now().UTC())
    require.Len(t, expired, 1)
    require.NoError(t, eng.RecordExpiry(ctx, expired[0]))

    rec, err := ledger.GetByID(ctx, receipt.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCancelled, rec.Status)
    assert.Equal(t, []string{model.EventHoldExpired}, pub.types())

    // Recording the same expiry twice is harmless.
    require.NoError(t, eng.RecordExpiry(ctx, expired[0]))
    assert.Equal(t, []string{model.EventHoldExpired}, pub.types())
}

func TestRequestBooking_ExpiredHoldRebookedBeforeSweep(t *testing.T) {
    eng, ledger, _ := newTestEngine(t, 20*time.Millisecond)
    ctx := context.Background()

    first, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)
    time.Sleep(50 * time.Millisecond)

    // No confirm and no sweep: the seat map reclaims the lapsed hold
    // inline and the ledger reclaims the HELD record inside the new
    // hold's transaction, so the rebooking lands on the first try.
    second, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userBob})
    require.NoError(t, err)
    assert.NotEqual(t, first.BookingID, second.BookingID)

    old, err := ledger.GetByID(ctx, first.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCancelled, old.Status)
    assert.Contains(t, ledger.events, model.EventHoldExpired)

    fresh, err := ledger.GetByID(ctx, second.BookingID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingHeld, fresh.Status)
}

func TestCancelBooking_LedgerBeforeSeatRelease(t *testing.T) {
    eng, ledger, _ := newTestEngine(t, time.Minute)
    ctx := context.Background()

    receipt, err := eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userAlice})
    require.NoError(t, err)

    // While the cancellation is still being ledgered the seat must
    // stay held in the map, otherwise a racing hold could collide
    // with the live record on the unique active-booking key.
    ledger.onCancel = func() {
        _, herr := eng.seats.TryHold(ctx, showingID, seatID, userBob, time.Minute)
        assert.ErrorIs(t, herr, seatmap.ErrSeatUnavailable)
    }
    require.NoError(t, eng.CancelBooking(ctx, receipt.BookingID, userAlice))
    ledger.onCancel = nil

    _, err = eng.RequestBooking(ctx, BookingRequest{ShowingID: showingID, SeatID: seatID, UserID: userBob})
    require.NoError(t, err)
}

func TestRequestBooking_ConcurrentSingleWinner(t *testing.T) {
    eng, ledger, _ := newTestEngine(t, time.Minute)
    ctx := context.Background()

    const callers = 16
    var wg sync.WaitGroup
    errs := make([]error, callers)
    for i := 0; i < callers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = eng.RequestBooking(ctx, BookingRequest{
                ShowingID: showingID, SeatID: seatID, UserID: uint64(i + 1),
            })
        }(i)
    }
    wg.Wait()

    var won, lost int
    for i, err := range errs {
        if err == nil {
            won++
            continue
        }
        kind, ok := KindOf(err)
        require.True(t, ok, fmt.Sprintf("caller %d: unclassified error %v", i, err))
        require.Equal(t, KindSeatUnavailable, kind)
        lost++
    }
    assert.Equal(t, 1, won)
    assert.Equal(t, callers-1, lost)
    assert.Len(t, ledger.rejected, callers-1)
}

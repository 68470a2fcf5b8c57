package query_test

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/seatwise/booking-engine/internal/catalog"
    "github.com/seatwise/booking-engine/internal/query"
    "github.com/seatwise/booking-engine/internal/model"
    "github.com/seatwise/booking-engine/internal/repository"
    "github.com/seatwise/booking-engine/internal/seatmap"
)

const showingID = uint64(7)

type fakeCatalog struct {
    showings   map[uint64]model.Showing
    seats      []model.Seat
    lastFilter catalog.ShowingFilter
}

func (c *fakeCatalog) GetShowing(_ context.Context, id uint64) (*model.Showing, error) {
    s, ok := c.showings[id]
    if !ok {
        return nil, repository.ErrShowingNotFound
    }
    return &s, nil
}

func (c *fakeCatalog) SeatsForShowing(_ context.Context, _ uint64) ([]model.Seat, error) {
    return c.seats, nil
}

func (c *fakeCatalog) SeatIDsForShowing(_ context.Context, _ uint64) ([]uint64, error) {
    ids := make([]uint64, 0, len(c.seats))
    for _, s := range c.seats {
        ids = append(ids, s.ID)
    }
    return ids, nil
}

type sliceShowingCursor struct {
    items []model.Showing
    idx   int
}

func (c *sliceShowingCursor) Next() bool {
    if c.idx >= len(c.items) {
        return false
    }
    c.idx++
    return true
}
func (c *sliceShowingCursor) Showing() model.Showing { return c.items[c.idx-1] }
func (c *sliceShowingCursor) Err() error             { return nil }
func (c *sliceShowingCursor) Close() error           { return nil }

func (c *fakeCatalog) ListShowings(_ context.Context, f catalog.ShowingFilter) (catalog.ShowingCursor, error) {
    c.lastFilter = f
    out := make([]model.Showing, 0, len(c.showings))
    for _, s := range c.showings {
        out = append(out, s)
    }
    return &sliceShowingCursor{items: out}, nil
}

type sliceEventCursor struct {
    items []model.LedgerEvent
    idx   int
}

func (c *sliceEventCursor) Next() bool {
    if c.idx >= len(c.items) {
        return false
    }
    c.idx++
    return true
}
func (c *sliceEventCursor) Event() model.LedgerEvent { return c.items[c.idx-1] }
func (c *sliceEventCursor) Err() error               { return nil }
func (c *sliceEventCursor) Close() error             { return nil }

type fakeLedger struct {
    events []model.LedgerEvent
}

func (l *fakeLedger) HistoryByShowing(_ context.Context, _ uint64) (query.EventCursor, error) {
    return &sliceEventCursor{items: l.events}, nil
}

func (l *fakeLedger) HistoryByUser(_ context.Context, _ uint64) (query.EventCursor, error) {
    return &sliceEventCursor{items: l.events}, nil
}

type mapCache struct {
    data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
    raw, ok := c.data[key]
    return raw, ok
}

func (c *mapCache) Set(_ context.Context, key string, val []byte, _ time.Duration) {
    c.data[key] = val
}

func newTestService(cache query.SnapshotCache) (*query.Service, *fakeCatalog, *seatmap.Map) {
    cat := &fakeCatalog{
        showings: map[uint64]model.Showing{
            showingID: {
                ID: showingID, ShowroomID: 1, MovieTitle: "Dune",
                StartsAt:    time.Now().UTC().Add(time.Hour),
                EndsAt:      time.Now().UTC().Add(3 * time.Hour),
                IsScreening: true,
            },
        },
        seats: []model.Seat{
            {ID: 10, ShowroomID: 1, SeatTypeID: 1, RowLabel: "B", SeatNumber: 2},
            {ID: 11, ShowroomID: 1, SeatTypeID: 1, RowLabel: "A", SeatNumber: 1},
            {ID: 12, ShowroomID: 1, SeatTypeID: 2, RowLabel: "A", SeatNumber: 2},
        },
    }
    seats := seatmap.New(cat)
    return query.New(cat, seats, &fakeLedger{}, cache, time.Second, nil), cat, seats
}

func codes(free []query.FreeSeat) []string {
    out := make([]string, len(free))
    for i, f := range free {
        out[i] = f.SeatCode
    }
    return out
}

func TestAvailableSeats_SortedByCode(t *testing.T) {
    svc, _, _ := newTestService(nil)

    free, err := svc.AvailableSeats(context.Background(), showingID)
    require.NoError(t, err)
    assert.Equal(t, []string{"A1", "A2", "B2"}, codes(free))
}

func TestAvailableSeats_RoundTrip(t *testing.T) {
    svc, _, seats := newTestService(nil)
    ctx := context.Background()

    hold, err := seats.TryHold(ctx, showingID, 11, 1, time.Minute)
    require.NoError(t, err)
    free, err := svc.AvailableSeats(ctx, showingID)
    require.NoError(t, err)
    assert.Equal(t, []string{"A2", "B2"}, codes(free), "held seat drops out of the listing")

    seats.Release(hold.BookingID)
    free, err = svc.AvailableSeats(ctx, showingID)
    require.NoError(t, err)
    assert.Equal(t, []string{"A1", "A2", "B2"}, codes(free), "released seat comes back")

    hold, err = seats.TryHold(ctx, showingID, 11, 1, time.Minute)
    require.NoError(t, err)
    require.NoError(t, seats.Confirm(hold.BookingID))
    free, err = svc.AvailableSeats(ctx, showingID)
    require.NoError(t, err)
    assert.Equal(t, []string{"A2", "B2"}, codes(free), "booked seat stays out")
}

func TestAvailableSeats_UnknownShowing(t *testing.T) {
    svc, _, _ := newTestService(nil)

    _, err := svc.AvailableSeats(context.Background(), 999)
    assert.ErrorIs(t, err, repository.ErrShowingNotFound)
}

func TestAvailableSeats_ServedFromCache(t *testing.T) {
    cache := newMapCache()
    svc, _, seats := newTestService(cache)
    ctx := context.Background()

    first, err := svc.AvailableSeats(ctx, showingID)
    require.NoError(t, err)
    require.Len(t, cache.data, 1)

    // A hold taken after the listing was cached is not visible until
    // the entry expires.
    _, err = seats.TryHold(ctx, showingID, 11, 1, time.Minute)
    require.NoError(t, err)
    cached, err := svc.AvailableSeats(ctx, showingID)
    require.NoError(t, err)
    assert.Equal(t, codes(first), codes(cached))
}

func TestUpcomingScreenings_Filter(t *testing.T) {
    svc, cat, _ := newTestService(nil)

    before := time.Now().UTC()
    out, err := svc.UpcomingScreenings(context.Background())
    require.NoError(t, err)
    require.Len(t, out, 1)

    assert.True(t, cat.lastFilter.OnlyScreening)
    assert.False(t, cat.lastFilter.From.Before(before), "lower bound excludes ended showings")
}

func TestShowingHistory(t *testing.T) {
    svc, _, _ := newTestService(nil)
    ledger := query.LedgerOf(svc).(*fakeLedger)
    ledger.events = []model.LedgerEvent{
        {ID: 1, Type: model.EventHoldCreated, BookingID: "b1"},
        {ID: 2, Type: model.EventConfirmed, BookingID: "b1"},
    }

    events, err := svc.ShowingHistory(context.Background(), showingID)
    require.NoError(t, err)
    require.Len(t, events, 2)
    assert.Equal(t, model.EventHoldCreated, events[0].Type)
    assert.Equal(t, model.EventConfirmed, events[1].Type)
}

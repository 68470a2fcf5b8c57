// Package query is the read side of the booking engine.  It composes
// the catalog's reference data with the seat map's live availability
// into client-facing listings and exposes the ledger's event history.
package query

import (
    "context"
    "encoding/json"
    "sort"
    "strconv"
    "time"

    "go.uber.org/zap"

    "github.com/seatwise/booking-engine/internal/catalog"
    "github.com/seatwise/booking-engine/internal/model"
    "github.com/seatwise/booking-engine/internal/seatmap"
)

// Catalog is the slice of the catalog service the read side needs.
type Catalog interface {
    GetShowing(ctx context.Context, id uint64) (*model.Showing, error)
    SeatsForShowing(ctx context.Context, showingID uint64) ([]model.Seat, error)
    ListShowings(ctx context.Context, f catalog.ShowingFilter) (catalog.ShowingCursor, error)
}

// EventCursor is a lazy cursor over ledger events in chronological
// order.  The sequence is finite and restartable by issuing the
// history query again.
type EventCursor interface {
    Next() bool
    Event() model.LedgerEvent
    Err() error
    Close() error
}

// Ledger is the read-only slice of the booking ledger.
type Ledger interface {
    HistoryByShowing(ctx context.Context, showingID uint64) (EventCursor, error)
    HistoryByUser(ctx context.Context, userID uint64) (EventCursor, error)
}

// SnapshotCache caches serialized availability listings for the few
// seconds they stay useful.  Implementations must treat misses and
// backend failures identically: return ok=false and let the caller
// rebuild.
type SnapshotCache interface {
    Get(ctx context.Context, key string) ([]byte, bool)
    Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// Service answers read queries.  cache may be nil to disable caching.
type Service struct {
    catalog  Catalog
    seats    *seatmap.Map
    ledger   Ledger
    cache    SnapshotCache
    cacheTTL time.Duration
    log      *zap.Logger
}

// New constructs a query Service.
func New(cat Catalog, seats *seatmap.Map, ledger Ledger, cache SnapshotCache, cacheTTL time.Duration, log *zap.Logger) *Service {
    if cat == nil || seats == nil || ledger == nil {
        panic("nil dependency passed to query.New")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Service{catalog: cat, seats: seats, ledger: ledger, cache: cache, cacheTTL: cacheTTL, log: log}
}

// FreeSeat is one bookable seat in an availability listing.
type FreeSeat struct {
    SeatID     uint64 `json:"seat_id"`
    SeatCode   string `json:"seat_code"`
    SeatTypeID uint64 `json:"seat_type_id"`
}

// AvailableSeats lists the seats of a showing that are currently free,
// ordered by seat code.  Held and booked seats are filtered out; holds
// past their expiry count as free.  The listing may be served from the
// cache and be a few seconds stale.
func (s *Service) AvailableSeats(ctx context.Context, showingID uint64) ([]FreeSeat, error) {
    key := availabilityKey(showingID)
    if s.cache != nil {
        if raw, ok := s.cache.Get(ctx, key); ok {
            var cached []FreeSeat
            if err := json.Unmarshal(raw, &cached); err == nil {
                return cached, nil
            }
            s.log.Warn("discarding undecodable availability cache entry", zap.Uint64("showing_id", showingID))
        }
    }
    if _, err := s.catalog.GetShowing(ctx, showingID); err != nil {
        return nil, err
    }
    seats, err := s.catalog.SeatsForShowing(ctx, showingID)
    if err != nil {
        return nil, err
    }
    snap, err := s.seats.Snapshot(ctx, showingID)
    if err != nil {
        return nil, err
    }
    free := make([]FreeSeat, 0, len(seats))
    for _, seat := range seats {
        av, ok := snap[seat.ID]
        if !ok || av.Status != seatmap.StatusFree {
            continue
        }
        free = append(free, FreeSeat{SeatID: seat.ID, SeatCode: seat.Code(), SeatTypeID: seat.SeatTypeID})
    }
    sort.Slice(free, func(i, j int) bool { return free[i].SeatCode < free[j].SeatCode })
    if s.cache != nil {
        if raw, err := json.Marshal(free); err == nil {
            s.cache.Set(ctx, key, raw, s.cacheTTL)
        }
    }
    return free, nil
}

// UpcomingScreenings lists showings that are still screening and have
// not ended yet, ordered by start time ascending.
func (s *Service) UpcomingScreenings(ctx context.Context) ([]model.Showing, error) {
    cur, err := s.catalog.ListShowings(ctx, catalog.ShowingFilter{
        OnlyScreening: true,
        From:          time.Now().UTC(),
    })
    if err != nil {
        return nil, err
    }
    defer cur.Close()
    out := make([]model.Showing, 0)
    for cur.Next() {
        out = append(out, cur.Showing())
    }
    if err := cur.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// ShowingHistory drains the ledger's event trail for a showing.
func (s *Service) ShowingHistory(ctx context.Context, showingID uint64) ([]model.LedgerEvent, error) {
    cur, err := s.ledger.HistoryByShowing(ctx, showingID)
    if err != nil {
        return nil, err
    }
    return drainEvents(cur)
}

// UserHistory drains the ledger's event trail for a user.
func (s *Service) UserHistory(ctx context.Context, userID uint64) ([]model.LedgerEvent, error) {
    cur, err := s.ledger.HistoryByUser(ctx, userID)
    if err != nil {
        return nil, err
    }
    return drainEvents(cur)
}

func drainEvents(cur EventCursor) ([]model.LedgerEvent, error) {
    defer cur.Close()
    out := make([]model.LedgerEvent, 0)
    for cur.Next() {
        out = append(out, cur.Event())
    }
    if err := cur.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

func availabilityKey(showingID uint64) string {
    return "availability:showing:" + strconv.FormatUint(showingID, 10)
}

package main // Entry point package

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/seatwise/booking-engine/internal/catalog"
    "github.com/seatwise/booking-engine/internal/config"
    "github.com/seatwise/booking-engine/internal/database"
    "github.com/seatwise/booking-engine/internal/engine"
    "github.com/seatwise/booking-engine/internal/handler"
    "github.com/seatwise/booking-engine/internal/logger"
    "github.com/seatwise/booking-engine/internal/middleware"
    "github.com/seatwise/booking-engine/internal/query"
    "github.com/seatwise/booking-engine/internal/queue"
    "github.com/seatwise/booking-engine/internal/repository"
    "github.com/seatwise/booking-engine/internal/router"
    "github.com/seatwise/booking-engine/internal/seatmap"
    "github.com/seatwise/booking-engine/internal/worker"
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments set the environment directly
    cfg := config.Load()

    zl := logger.NewLogger(cfg.Env)
    logger.Set(zl)
    defer func() { _ = logger.Sync() }()

    db, err := database.Open(database.Params{
        User: cfg.DBUser, Password: cfg.DBPass,
        Host: cfg.DBHost, Port: cfg.DBPort,
        Name: cfg.DBName, MaxConns: cfg.DBMaxConns,
    })
    if err != nil {
        logger.Fatal("database connection failed", zap.Error(err))
    }
    defer db.Close()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if err := database.EnsureSchema(ctx, db); err != nil {
        logger.Fatal("schema bootstrap failed", zap.Error(err))
    }

    // Redis is optional: without it the service runs with rate
    // limiting, response caching and the availability cache disabled.
    rdb := config.NewRedisClient()
    if rdb == nil {
        logger.Warn("redis unavailable, caching and rate limiting disabled")
    }

    showroomRepo := repository.NewShowroomRepo(db)
    seatRepo := repository.NewSeatRepo(db)
    seatTypeRepo := repository.NewSeatTypeRepo(db)
    showingRepo := repository.NewShowingRepo(db)
    ledger := repository.NewLedgerRepo(db)

    cat := catalog.NewStore(showroomRepo, seatRepo, seatTypeRepo, showingRepo)
    seats := seatmap.New(cat)
    eng := engine.New(cat, seats, ledger, queue.NewPublisher(cfg.AMQPURL), cfg.HoldTTL)

    var cache query.SnapshotCache
    if rdb != nil {
        cache = query.NewRedisCache(rdb, zl)
    }
    qsvc := query.New(cat, seats, ledger, cache, cfg.CacheTTL, zl)

    sweeper := worker.NewHoldSweeper(seats, eng, cfg.SweepInterval)
    go sweeper.Start(ctx)

    go func() {
        if err := queue.StartBookingConsumer(ctx, cfg.AMQPURL); err != nil && !errors.Is(err, context.Canceled) {
            logger.Error("booking consumer stopped", zap.Error(err))
        }
    }()

    e := echo.New()
    e.HideBanner = true
    e.Use(middleware.Identity())
    if rdb != nil {
        e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))
        e.Use(middleware.ResponseCache(config.LoadResponseCacheConfig(), rdb))
    }

    router.RegisterRoutes(e, handler.NewHealthHandler(db))
    router.RegisterPublic(e, handler.NewPublicHandler(qsvc))
    router.RegisterBooking(e, handler.NewBookingHandler(eng))
    router.RegisterAdmin(e, handler.NewAdminHandler(cat, qsvc))

    addr := ":" + cfg.Port
    go func() {
        logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
        if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
            logger.Fatal("server failed", zap.Error(err))
        }
    }()

    <-ctx.Done()
    logger.Info("shutting down")
    sweeper.Stop()

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        logger.Error("server shutdown failed", zap.Error(err))
    }
}

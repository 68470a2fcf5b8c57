// Package database opens the MySQL connection behind the catalog and
// the booking ledger and bootstraps the schema.
package database

import (
    "context"
    "database/sql"
    "net"
    "time"

    "github.com/go-sql-driver/mysql"
)

// Params describes the booking database connection.  MaxConns bounds
// the pool; ledger transactions are short, so a modest pool carries a
// lot of booking traffic.
type Params struct {
    User     string
    Password string
    Host     string
    Port     string
    Name     string
    MaxConns int
}

// Open connects to MySQL and verifies the connection.  DATETIME
// columns parse into UTC time.Time values; every timestamp the ledger
// stores or compares is UTC, including the hold expiries the
// active-booking reclaim relies on.
func Open(p Params) (*sql.DB, error) {
    db, err := sql.Open("mysql", dsn(p))
    if err != nil {
        return nil, err
    }

    maxConns := p.MaxConns
    if maxConns <= 0 {
        maxConns = 25
    }
    db.SetMaxOpenConns(maxConns)
    db.SetMaxIdleConns(maxConns)
    db.SetConnMaxLifetime(30 * time.Minute)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, err
    }
    return db, nil
}

func dsn(p Params) string {
    c := mysql.NewConfig()
    c.User = p.User
    c.Passwd = p.Password
    c.Net = "tcp"
    c.Addr = net.JoinHostPort(p.Host, p.Port)
    c.DBName = p.Name
    c.ParseTime = true
    c.Loc = time.UTC
    c.Params = map[string]string{"charset": "utf8mb4"}
    return c.FormatDSN()
}

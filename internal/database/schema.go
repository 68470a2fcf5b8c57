package database

import (
    "context"
    "database/sql"
)

// schemaStatements creates the persistent layout on startup.  All
// DATETIME columns hold UTC.  booking_records carries a stored
// generated column `active` that is 1 while the record is HELD or
// CONFIRMED and NULL otherwise; the unique key over
// (showing_id, seat_id, active) lets MySQL itself refuse a second
// active booking for a seat.  NULLs never collide in a unique index,
// so cancelled records free the slot.
var schemaStatements = []string{
    `CREATE TABLE IF NOT EXISTS showrooms (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        name VARCHAR(255) NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS seat_types (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        label VARCHAR(64) NOT NULL,
        premium_percent INT UNSIGNED NOT NULL DEFAULT 0,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uniq_seat_type_label (label)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS seats (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        showroom_id BIGINT UNSIGNED NOT NULL,
        seat_type_id BIGINT UNSIGNED NOT NULL,
        row_label VARCHAR(8) NOT NULL,
        seat_number INT UNSIGNED NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uniq_seat_position (showroom_id, row_label, seat_number),
        KEY idx_seats_showroom (showroom_id),
        CONSTRAINT fk_seats_showroom FOREIGN KEY (showroom_id) REFERENCES showrooms (id),
        CONSTRAINT fk_seats_seat_type FOREIGN KEY (seat_type_id) REFERENCES seat_types (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS showings (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        showroom_id BIGINT UNSIGNED NOT NULL,
        movie_title VARCHAR(255) NOT NULL,
        starts_at DATETIME NOT NULL,
        ends_at DATETIME NOT NULL,
        base_price_cents INT UNSIGNED NOT NULL,
        is_screening TINYINT(1) NOT NULL DEFAULT 1,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_showings_showroom_time (showroom_id, starts_at, ends_at),
        CONSTRAINT fk_showings_showroom FOREIGN KEY (showroom_id) REFERENCES showrooms (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS booking_records (
        id CHAR(36) NOT NULL,
        showing_id BIGINT UNSIGNED NOT NULL,
        seat_id BIGINT UNSIGNED NOT NULL,
        user_id BIGINT UNSIGNED NOT NULL,
        status ENUM('HELD','CONFIRMED','CANCELLED') NOT NULL,
        price_cents INT UNSIGNED NOT NULL,
        expires_at DATETIME NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        decided_at DATETIME NULL,
        active TINYINT AS (CASE WHEN status IN ('HELD','CONFIRMED') THEN 1 ELSE NULL END) STORED,
        PRIMARY KEY (id),
        UNIQUE KEY uniq_active_booking (showing_id, seat_id, active),
        KEY idx_bookings_user (user_id),
        CONSTRAINT fk_bookings_showing FOREIGN KEY (showing_id) REFERENCES showings (id),
        CONSTRAINT fk_bookings_seat FOREIGN KEY (seat_id) REFERENCES seats (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS booking_events (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        event_type VARCHAR(32) NOT NULL,
        booking_id CHAR(36) NOT NULL DEFAULT '',
        request_id VARCHAR(128) NOT NULL DEFAULT '',
        showing_id BIGINT UNSIGNED NOT NULL,
        seat_id BIGINT UNSIGNED NOT NULL,
        user_id BIGINT UNSIGNED NOT NULL,
        price_cents INT UNSIGNED NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_events_showing (showing_id),
        KEY idx_events_user (user_id),
        KEY idx_events_request (request_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema applies the schema statements in order.  Every
// statement is idempotent so repeated startups are safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
    for _, stmt := range schemaStatements {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return err
        }
    }
    return nil
}

/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package store persists players, their rapid and blitz ratings, applied
// tournaments and rating history in a SQL database. Both sqlite (modernc)
// and postgres (pgx) are supported through database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrInvalidRatingType  = errors.New("invalid rating type")
	ErrIDConflict         = errors.New("player id already in use")
	ErrUnregistered       = errors.New("players not found in database")
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// RatingType selects which of a player's two ratings a tournament affects.
type RatingType string

const (
	RatingRapid RatingType = "rapid"
	RatingBlitz RatingType = "blitz"
)

func ParseRatingType(s string) (RatingType, error) {
	switch RatingType(strings.ToLower(strings.TrimSpace(s))) {
	case RatingRapid:
		return RatingRapid, nil
	case RatingBlitz:
		return RatingBlitz, nil
	}
	return "", fmt.Errorf("%w %q: must be %q or %q", ErrInvalidRatingType, s,
		RatingRapid, RatingBlitz)
}

// columns returns the ratings table columns holding mu, rd and sigma for rt.
func (rt RatingType) columns() (string, string, string, error) {
	switch rt {
	case RatingRapid, RatingBlitz:
		return string(rt) + "_rating", string(rt) + "_rd", string(rt) + "_sigma",
			nil
	}
	return "", "", "", fmt.Errorf("%w %q", ErrInvalidRatingType, rt)
}

type Store struct {
	db     *sql.DB
	driver Driver
	now    func() time.Time
}

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:clubratings.db?mode=rwc"
		}
		if !strings.Contains(dsn, "_pragma") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/clubratings?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("store.open: unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store.open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.open: ping: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.open: schema: %w", err)
	}

	return &Store{db: db, driver: driver, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Driver() Driver {
	return s.driver
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// placeholders returns "$start, $start+1, ..." for n parameters.
func placeholders(start int, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ph, ", ")
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS players (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  team TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ratings (
  player_id TEXT PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,
  rapid_rating REAL NOT NULL DEFAULT 1500,
  rapid_rd REAL NOT NULL DEFAULT 350,
  rapid_sigma REAL NOT NULL DEFAULT 0.06,
  blitz_rating REAL NOT NULL DEFAULT 1500,
  blitz_rd REAL NOT NULL DEFAULT 350,
  blitz_sigma REAL NOT NULL DEFAULT 0.06,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tournaments (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  tournament_date TEXT NOT NULL,
  tournament_type TEXT NOT NULL,
  club TEXT NOT NULL DEFAULT '',
  processed_by TEXT NOT NULL DEFAULT '',
  archive_key TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rating_history (
  id TEXT PRIMARY KEY,
  player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
  tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
  tournament_type TEXT NOT NULL,
  old_rating REAL NOT NULL,
  old_rd REAL NOT NULL,
  old_sigma REAL NOT NULL,
  new_rating REAL NOT NULL,
  new_rd REAL NOT NULL,
  new_sigma REAL NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS rating_history_player ON rating_history(player_id);
CREATE INDEX IF NOT EXISTS rating_history_tournament ON rating_history(tournament_id);

CREATE TABLE IF NOT EXISTS admin_actions (
  id TEXT PRIMARY KEY,
  admin_email TEXT NOT NULL,
  action_type TEXT NOT NULL,
  tournament_id TEXT,
  details TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS players (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  team TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS ratings (
  player_id TEXT PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,
  rapid_rating DOUBLE PRECISION NOT NULL DEFAULT 1500,
  rapid_rd DOUBLE PRECISION NOT NULL DEFAULT 350,
  rapid_sigma DOUBLE PRECISION NOT NULL DEFAULT 0.06,
  blitz_rating DOUBLE PRECISION NOT NULL DEFAULT 1500,
  blitz_rd DOUBLE PRECISION NOT NULL DEFAULT 350,
  blitz_sigma DOUBLE PRECISION NOT NULL DEFAULT 0.06,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tournaments (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  tournament_date TEXT NOT NULL,
  tournament_type TEXT NOT NULL,
  club TEXT NOT NULL DEFAULT '',
  processed_by TEXT NOT NULL DEFAULT '',
  archive_key TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS rating_history (
  id TEXT PRIMARY KEY,
  player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
  tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
  tournament_type TEXT NOT NULL,
  old_rating DOUBLE PRECISION NOT NULL,
  old_rd DOUBLE PRECISION NOT NULL,
  old_sigma DOUBLE PRECISION NOT NULL,
  new_rating DOUBLE PRECISION NOT NULL,
  new_rd DOUBLE PRECISION NOT NULL,
  new_sigma DOUBLE PRECISION NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS rating_history_player ON rating_history(player_id);
CREATE INDEX IF NOT EXISTS rating_history_tournament ON rating_history(tournament_id);

CREATE TABLE IF NOT EXISTS admin_actions (
  id TEXT PRIMARY KEY,
  admin_email TEXT NOT NULL,
  action_type TEXT NOT NULL,
  tournament_id TEXT,
  details TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`

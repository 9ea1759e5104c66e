package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/okian/deuce/internal/domain/model"
	"github.com/okian/deuce/internal/domain/rating"
)

// Driver names a SQL backend.
type Driver string

// Supported drivers. DriverMemory selects MemoryStore.
const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver validates a driver name.
func ParseDriver(name string) (Driver, error) {
	switch d := Driver(name); d {
	case DriverMemory, DriverSQLite, DriverPostgres:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, name)
	}
}

// SQLStore is a Store over database/sql. The same queries serve sqlite and
// postgres.
type SQLStore struct {
	db       *sql.DB
	driver   Driver
	reporter *reporter
	closed   atomic.Bool
}

// Open connects to a SQL backend and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string, opts ...Option) (*SQLStore, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:deuce.db?mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/deuce?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection keeps in-memory databases shared and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	o := newOptions(opts)
	s := &SQLStore{db: db, driver: driver}
	s.reporter = startReporter(ctx, o.metricsUpdateInterval, s.Count)
	return s, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	schema := schemaPostgres
	if driver == DriverSQLite {
		schema = schemaSQLite
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS ratings (
  id TEXT PRIMARY KEY,
  player_id TEXT NOT NULL,
  sport TEXT NOT NULL,
  season_id TEXT NOT NULL,
  game_mode TEXT NOT NULL,
  current_rating INTEGER NOT NULL,
  rating_deviation INTEGER NOT NULL,
  is_provisional INTEGER NOT NULL,
  matches_played INTEGER NOT NULL DEFAULT 0,
  peak_rating INTEGER NOT NULL,
  lowest_rating INTEGER NOT NULL,
  source TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE (player_id, sport, season_id, game_mode)
);

CREATE TABLE IF NOT EXISTS rating_history (
  id TEXT PRIMARY KEY,
  rating_id TEXT NOT NULL REFERENCES ratings(id) ON DELETE CASCADE,
  rating_before INTEGER NOT NULL,
  rating_after INTEGER NOT NULL,
  delta INTEGER NOT NULL,
  reason TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS rating_history_rating_id ON rating_history (rating_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS ratings (
  id TEXT PRIMARY KEY,
  player_id TEXT NOT NULL,
  sport TEXT NOT NULL,
  season_id TEXT NOT NULL,
  game_mode TEXT NOT NULL,
  current_rating INTEGER NOT NULL,
  rating_deviation INTEGER NOT NULL,
  is_provisional BOOLEAN NOT NULL,
  matches_played INTEGER NOT NULL DEFAULT 0,
  peak_rating INTEGER NOT NULL,
  lowest_rating INTEGER NOT NULL,
  source TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  UNIQUE (player_id, sport, season_id, game_mode)
);

CREATE TABLE IF NOT EXISTS rating_history (
  id TEXT PRIMARY KEY,
  rating_id TEXT NOT NULL REFERENCES ratings(id) ON DELETE CASCADE,
  rating_before INTEGER NOT NULL,
  rating_after INTEGER NOT NULL,
  delta INTEGER NOT NULL,
  reason TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS rating_history_rating_id ON rating_history (rating_id);
`

const recordColumns = `id, player_id, sport, season_id, game_mode, current_rating, rating_deviation,
  is_provisional, matches_played, peak_rating, lowest_rating, source, created_at`

func (s *SQLStore) CreateInitial(ctx context.Context, rec model.Record, hist model.HistoryEntry) (created bool, err error) { //nolint:gocritic // records are values
	defer observeWrite(time.Now())

	if s.closed.Load() {
		return false, ErrClosed
	}
	if err := validate(&rec, &hist); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil || !created {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO ratings (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (player_id, sport, season_id, game_mode) DO NOTHING`,
		rec.ID, rec.PlayerID, string(rec.Sport), rec.SeasonID, string(rec.GameMode),
		rec.CurrentRating, rec.RatingDeviation, rec.IsProvisional, rec.MatchesPlayed,
		rec.PeakRating, rec.LowestRating, string(rec.Source), rec.CreatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert record %s: %w", rec.Key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO rating_history
		(id, rating_id, rating_before, rating_after, delta, reason, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		hist.ID, hist.RatingID, hist.RatingBefore, hist.RatingAfter, hist.Delta,
		hist.Reason, hist.Notes, hist.CreatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert history %s: %w", hist.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *SQLStore) Get(ctx context.Context, key model.RecordKey) (model.Record, error) {
	defer observeQuery(time.Now())

	if s.closed.Load() {
		return model.Record{}, ErrClosed
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM ratings
		WHERE player_id=$1 AND sport=$2 AND season_id=$3 AND game_mode=$4`,
		key.PlayerID, string(key.Sport), key.SeasonID, string(key.GameMode))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, ErrNotFound
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("get %s: %w", key, err)
	}
	return rec, nil
}

func (s *SQLStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.Record, error) {
	defer observeQuery(time.Now())

	if s.closed.Load() {
		return nil, ErrClosed
	}

	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM ratings
		WHERE player_id=$1 ORDER BY sport, season_id, game_mode LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", playerID, err)
	}
	defer rows.Close()

	out := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) History(ctx context.Context, ratingID string) ([]model.HistoryEntry, error) {
	defer observeQuery(time.Now())

	if s.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, rating_id, rating_before, rating_after, delta, reason, notes, created_at
		FROM rating_history WHERE rating_id=$1 ORDER BY created_at, id`, ratingID)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", ratingID, err)
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var (
			h       model.HistoryEntry
			created int64
		)
		if err := rows.Scan(&h.ID, &h.RatingID, &h.RatingBefore, &h.RatingAfter, &h.Delta, &h.Reason, &h.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Close stops background metrics and closes the database. Later calls fail
// with ErrClosed.
func (s *SQLStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.reporter.Close()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (model.Record, error) {
	var (
		rec                 model.Record
		sport, mode, source string
		created             int64
	)
	err := sc.Scan(&rec.ID, &rec.PlayerID, &sport, &rec.SeasonID, &mode,
		&rec.CurrentRating, &rec.RatingDeviation, &rec.IsProvisional, &rec.MatchesPlayed,
		&rec.PeakRating, &rec.LowestRating, &source, &created)
	if err != nil {
		return model.Record{}, err
	}
	rec.Sport = rating.Sport(sport)
	rec.GameMode = rating.GameMode(mode)
	rec.Source = rating.Source(source)
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return rec, nil
}

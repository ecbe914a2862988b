// Package store persists the booking collections in SQLite. Each collection
// is one JSON blob in a key/value table, matching the single-writer
// collection-at-a-time contract of booking.Store.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/neotechkk/smashpoint/internal/booking"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	keyReservations   = "reservations"
	keyCourts         = "courts"
	keyPromotionRules = "promotion_rules"
	keySettings       = "settings"
)

// SQLiteStore implements booking.Store over a blobs table.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at filename, applies
// embedded migrations, and returns the store.
func New(filename string) (*SQLiteStore, error) {
	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not create source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadReservations(ctx context.Context) ([]booking.Reservation, error) {
	var reservations []booking.Reservation
	found, err := s.getBlob(ctx, keyReservations, &reservations)
	if err != nil {
		return nil, err
	}
	if !found {
		return []booking.Reservation{}, nil
	}
	return reservations, nil
}

func (s *SQLiteStore) SaveReservations(ctx context.Context, reservations []booking.Reservation) error {
	return s.putBlob(ctx, keyReservations, reservations)
}

func (s *SQLiteStore) LoadCourts(ctx context.Context) ([]booking.Court, error) {
	var courts []booking.Court
	found, err := s.getBlob(ctx, keyCourts, &courts)
	if err != nil {
		return nil, err
	}
	if !found {
		return booking.DefaultCourts(), nil
	}
	return courts, nil
}

func (s *SQLiteStore) SaveCourts(ctx context.Context, courts []booking.Court) error {
	return s.putBlob(ctx, keyCourts, courts)
}

func (s *SQLiteStore) LoadPromotionRules(ctx context.Context) ([]booking.PromotionRule, error) {
	var rules []booking.PromotionRule
	found, err := s.getBlob(ctx, keyPromotionRules, &rules)
	if err != nil {
		return nil, err
	}
	if !found {
		return []booking.PromotionRule{}, nil
	}
	return rules, nil
}

func (s *SQLiteStore) SavePromotionRules(ctx context.Context, rules []booking.PromotionRule) error {
	return s.putBlob(ctx, keyPromotionRules, rules)
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (booking.Settings, error) {
	var settings booking.Settings
	found, err := s.getBlob(ctx, keySettings, &settings)
	if err != nil {
		return booking.Settings{}, err
	}
	if !found {
		return booking.DefaultSettings(), nil
	}
	return settings, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, settings booking.Settings) error {
	return s.putBlob(ctx, keySettings, settings)
}

// snapshot is the document written by WriteSnapshot: every collection plus
// the time it was taken.
type snapshot struct {
	TakenAt      time.Time               `json:"takenAt"`
	Reservations []booking.Reservation   `json:"reservations"`
	Courts       []booking.Court         `json:"courts"`
	Rules        []booking.PromotionRule `json:"promotionRules"`
	Settings     booking.Settings        `json:"settings"`
}

// WriteSnapshot stores a dated copy of every collection under
// "snapshot:YYYY-MM-DD". Re-running on the same day overwrites that day's
// snapshot. Returns the key written.
func (s *SQLiteStore) WriteSnapshot(ctx context.Context, takenAt time.Time) (string, error) {
	reservations, err := s.LoadReservations(ctx)
	if err != nil {
		return "", err
	}
	courts, err := s.LoadCourts(ctx)
	if err != nil {
		return "", err
	}
	rules, err := s.LoadPromotionRules(ctx)
	if err != nil {
		return "", err
	}
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return "", err
	}

	key := "snapshot:" + takenAt.Format("2006-01-02")
	doc := snapshot{
		TakenAt:      takenAt,
		Reservations: reservations,
		Courts:       courts,
		Rules:        rules,
		Settings:     settings,
	}
	if err := s.putBlob(ctx, key, doc); err != nil {
		return "", err
	}
	return key, nil
}

func (s *SQLiteStore) getBlob(ctx context.Context, key string, out any) (bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load blob %q: %w", key, err)
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, fmt.Errorf("decode blob %q: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteStore) putBlob(ctx context.Context, key string, in any) error {
	value, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode blob %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	return nil
}

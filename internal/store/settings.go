package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"voxspot/internal/core"
)

const (
	keyUser              = "user"
	keyPassword          = "password"
	keyDefaultDevice     = "default_device"
	keyLibrespotPath     = "librespot_path"
	keyPlaylistAsContext = "playlist_as_context"
	keyDucking           = "ducking"
)

// SettingsStore persists the user-editable skill settings and the recent
// track history in a sqlite database.
type SettingsStore struct {
	db     *sql.DB
	logger *zap.Logger

	mu        sync.Mutex
	listeners []func(core.Settings)
}

// NewSettingsStore opens (or creates) the database at path.
func NewSettingsStore(path string, logger *zap.Logger) (*SettingsStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SettingsStore{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS recent_tracks (
			position INTEGER PRIMARY KEY,
			uri TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Load reads the stored settings. Missing keys keep their zero value.
func (s *SettingsStore) Load(ctx context.Context) (core.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return core.Settings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings core.Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return core.Settings{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		switch key {
		case keyUser:
			settings.User = value
		case keyPassword:
			settings.Password = value
		case keyDefaultDevice:
			settings.DefaultDevice = value
		case keyLibrespotPath:
			settings.LibrespotPath = value
		case keyPlaylistAsContext:
			settings.PlaylistAsContext, _ = strconv.ParseBool(value)
		case keyDucking:
			settings.Ducking, _ = strconv.ParseBool(value)
		default:
			s.logger.Debug("Ignoring unknown setting", zap.String("key", key))
		}
	}
	return settings, rows.Err()
}

// Save writes settings and notifies OnChange listeners when anything changed.
func (s *SettingsStore) Save(ctx context.Context, settings core.Settings) error {
	previous, err := s.Load(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]string{
		keyUser:              settings.User,
		keyPassword:          settings.Password,
		keyDefaultDevice:     settings.DefaultDevice,
		keyLibrespotPath:     settings.LibrespotPath,
		keyPlaylistAsContext: strconv.FormatBool(settings.PlaylistAsContext),
		keyDucking:           strconv.FormatBool(settings.Ducking),
	}
	for key, value := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value)
		if err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}

	if previous != settings {
		s.logger.Info("Settings changed",
			zap.String("user", settings.User),
			zap.String("default_device", settings.DefaultDevice))
		s.notify(settings)
	}
	return nil
}

// OnChange registers fn to run after every Save that changed the settings.
func (s *SettingsStore) OnChange(fn func(core.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *SettingsStore) notify(settings core.Settings) {
	s.mu.Lock()
	listeners := append([]func(core.Settings){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(settings)
	}
}

// SaveRecent replaces the stored recent track history, oldest first.
func (s *SettingsStore) SaveRecent(ctx context.Context, uris []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recent_tracks`); err != nil {
		return fmt.Errorf("failed to clear recent tracks: %w", err)
	}
	for i, uri := range uris {
		if _, err := tx.ExecContext(ctx, `INSERT INTO recent_tracks (position, uri) VALUES (?, ?)`, i, uri); err != nil {
			return fmt.Errorf("failed to save recent track: %w", err)
		}
	}
	return tx.Commit()
}

// LoadRecent returns the stored recent track history, oldest first.
func (s *SettingsStore) LoadRecent(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uri FROM recent_tracks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tracks: %w", err)
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("failed to scan recent track: %w", err)
		}
		uris = append(uris, uri)
	}
	return uris, rows.Err()
}

// Close closes the database.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

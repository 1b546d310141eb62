package settings

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/dvelikov/climate-controller/internal/model"
)

const schema = `CREATE TABLE IF NOT EXISTS room_settings (
	room_id TEXT PRIMARY KEY,
	min_temp INTEGER NOT NULL,
	max_temp INTEGER NOT NULL,
	manual_heat BOOLEAN NOT NULL DEFAULT FALSE,
	manual_cool BOOLEAN NOT NULL DEFAULT FALSE
)`

// Store persists per-room settings in SQLite. A store that cannot be opened
// at its configured path falls back to an in-memory database so the
// controller keeps running with defaults instead of refusing to start.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Settings database unavailable, using in-memory store")
		db, err = open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("open fallback settings store: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings schema: %w", err)
	}
	return db, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all persisted room settings keyed by room id.
func (s *Store) Load() (map[string]model.RoomConfig, error) {
	rows, err := s.db.Query(`SELECT room_id, min_temp, max_temp, manual_heat, manual_cool FROM room_settings`)
	if err != nil {
		return nil, fmt.Errorf("query room settings: %w", err)
	}
	defer rows.Close()

	cfgs := make(map[string]model.RoomConfig)
	for rows.Next() {
		var id string
		var cfg model.RoomConfig
		if err := rows.Scan(&id, &cfg.MinTemp, &cfg.MaxTemp, &cfg.ManualHeat, &cfg.ManualCool); err != nil {
			return nil, fmt.Errorf("scan room settings: %w", err)
		}
		cfgs[id] = cfg
	}
	return cfgs, rows.Err()
}

// Save upserts all room settings in one transaction.
func (s *Store) Save(cfgs map[string]model.RoomConfig) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("start settings transaction: %w", err)
	}

	for id, cfg := range cfgs {
		_, err = tx.Exec(`INSERT OR REPLACE INTO room_settings (room_id, min_temp, max_temp, manual_heat, manual_cool) VALUES (?, ?, ?, ?, ?)`,
			id, cfg.MinTemp, cfg.MaxTemp, cfg.ManualHeat, cfg.ManualCool)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert settings for room %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings transaction: %w", err)
	}
	return nil
}

// Package store persists projects, storyboards, suggestions, job runs, and
// both content caches in a single SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// currentSchemaVersion is the latest schema version. Bump when adding
// migrations.
const currentSchemaVersion = 1

// Options tunes cache expiry. Zero values fall back to the defaults.
type Options struct {
	AssetTTL time.Duration
	TTSTTL   time.Duration
}

const (
	defaultAssetTTL = 90 * 24 * time.Hour
	defaultTTSTTL   = 30 * 24 * time.Hour
)

// Store wraps the SQLite handle. All methods are safe for concurrent use;
// SQLite serializes writers and busy_timeout covers lock contention.
type Store struct {
	db       *sql.DB
	assetTTL time.Duration
	ttsTTL   time.Duration
	now      func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Pragmas ride on the connection string so every pooled
// connection gets them.
func Open(path string, opts Options) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	assetTTL := opts.AssetTTL
	if assetTTL == 0 {
		assetTTL = defaultAssetTTL
	}
	ttsTTL := opts.TTSTTL
	if ttsTTL == 0 {
		ttsTTL = defaultTTSTTL
	}

	return &Store{
		db:       db,
		assetTTL: assetTTL,
		ttsTTL:   ttsTTL,
		now:      time.Now,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS projects (
		  id              TEXT PRIMARY KEY,
		  owner_id        TEXT NOT NULL,
		  title           TEXT NOT NULL,
		  script          TEXT NOT NULL,
		  status          TEXT NOT NULL,
		  quality_overall INTEGER,
		  quality_level   TEXT NOT NULL DEFAULT '',
		  failure_reason  TEXT NOT NULL DEFAULT '',
		  created_at      INTEGER NOT NULL,
		  updated_at      INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_projects_owner
		ON projects(owner_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS segments (
		  project_id        TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		  ordinal           INTEGER NOT NULL,
		  original_text     TEXT NOT NULL,
		  optimized_text    TEXT NOT NULL,
		  target_seconds    REAL NOT NULL,
		  energy            INTEGER NOT NULL,
		  intent            TEXT NOT NULL,
		  queries_json      TEXT NOT NULL DEFAULT '[]',
		  fallback_query    TEXT NOT NULL DEFAULT '',
		  asset_status      TEXT NOT NULL,
		  asset_provider    TEXT NOT NULL DEFAULT '',
		  asset_id          TEXT NOT NULL DEFAULT '',
		  asset_url         TEXT NOT NULL DEFAULT '',
		  placeholder_color TEXT NOT NULL DEFAULT '',
		  silence           INTEGER NOT NULL DEFAULT 0,
		  silence_seconds   REAL NOT NULL DEFAULT 0,
		  speed_factor      REAL NOT NULL DEFAULT 1.0,
		  audio_url         TEXT NOT NULL DEFAULT '',
		  audio_seconds     REAL NOT NULL DEFAULT 0,
		  PRIMARY KEY (project_id, ordinal)
		);

		CREATE TABLE IF NOT EXISTS suggestions (
		  project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		  ordinal      INTEGER NOT NULL,
		  rank         INTEGER NOT NULL,
		  provider     TEXT NOT NULL,
		  asset_id     TEXT NOT NULL,
		  payload_json TEXT NOT NULL,
		  PRIMARY KEY (project_id, ordinal, rank)
		);

		CREATE TABLE IF NOT EXISTS job_runs (
		  id          TEXT PRIMARY KEY,
		  project_id  TEXT NOT NULL,
		  stage       TEXT NOT NULL,
		  status      TEXT NOT NULL,
		  detail      TEXT NOT NULL DEFAULT '',
		  started_at  INTEGER NOT NULL,
		  finished_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_job_runs_project
		ON job_runs(project_id, id);

		CREATE TABLE IF NOT EXISTS asset_cache (
		  provider     TEXT NOT NULL,
		  asset_id     TEXT NOT NULL,
		  payload_json TEXT NOT NULL,
		  fetched_at   INTEGER NOT NULL,
		  expires_at   INTEGER NOT NULL,
		  PRIMARY KEY (provider, asset_id)
		);

		CREATE INDEX IF NOT EXISTS idx_asset_cache_expiry
		ON asset_cache(expires_at);

		CREATE TABLE IF NOT EXISTS tts_cache (
		  text_hash        TEXT NOT NULL,
		  voice_preset     TEXT NOT NULL,
		  audio_url        TEXT NOT NULL,
		  storage_path     TEXT NOT NULL,
		  duration_seconds REAL NOT NULL,
		  created_at       INTEGER NOT NULL,
		  expires_at       INTEGER NOT NULL,
		  PRIMARY KEY (text_hash, voice_preset)
		);

		CREATE INDEX IF NOT EXISTS idx_tts_cache_expiry
		ON tts_cache(expires_at);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

func unixTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

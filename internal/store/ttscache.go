package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/speech"
	"storyreel/internal/storage"
)

var _ speech.Cache = (*Store)(nil)

// Get returns a cached synthesis, or nil when absent or expired.
func (s *Store) Get(ctx context.Context, key, presetID string) (*speech.Entry, error) {
	entry := speech.Entry{Key: key, PresetID: presetID}
	err := s.db.QueryRowContext(ctx, `
		SELECT audio_url, storage_path, duration_seconds FROM tts_cache
		WHERE text_hash = ? AND voice_preset = ? AND expires_at > ?`,
		key, presetID, s.now().UTC().Unix(),
	).Scan(&entry.AudioURL, &entry.StoragePath, &entry.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistence("read tts cache", err)
	}
	return &entry, nil
}

// Put inserts a synthesis result. Under concurrent writers the first insert
// wins: a duplicate-key insert reads the winning row back and reports
// inserted=false so the caller can discard its own upload.
func (s *Store) Put(ctx context.Context, entry speech.Entry) (*speech.Entry, bool, error) {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tts_cache (text_hash, voice_preset, audio_url, storage_path, duration_seconds, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Key, entry.PresetID, entry.AudioURL, entry.StoragePath,
		entry.DurationSeconds, now.Unix(), now.Add(s.ttsTTL).Unix(),
	)
	if err == nil {
		return &entry, true, nil
	}
	if !isUniqueConstraintError(err) {
		return nil, false, apperrors.NewPersistence("write tts cache", err)
	}

	var winner speech.Entry
	winner.Key = entry.Key
	winner.PresetID = entry.PresetID
	err = s.db.QueryRowContext(ctx, `
		SELECT audio_url, storage_path, duration_seconds FROM tts_cache
		WHERE text_hash = ? AND voice_preset = ?`,
		entry.Key, entry.PresetID,
	).Scan(&winner.AudioURL, &winner.StoragePath, &winner.DurationSeconds)
	if err != nil {
		return nil, false, apperrors.NewPersistence("read tts cache winner", err)
	}
	return &winner, false, nil
}

// SweepTTSCache expires old syntheses. The storage object is deleted before
// the row; a failed object delete leaves the row for the next sweep.
func (s *Store) SweepTTSCache(ctx context.Context, objects storage.ObjectStore) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT text_hash, voice_preset, storage_path FROM tts_cache
		WHERE expires_at <= ?`, s.now().UTC().Unix())
	if err != nil {
		return 0, apperrors.NewPersistence("sweep tts cache", err)
	}

	type expired struct {
		hash, preset, path string
	}
	var batch []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.hash, &e.preset, &e.path); err != nil {
			_ = rows.Close()
			return 0, apperrors.NewPersistence("sweep tts cache", err)
		}
		batch = append(batch, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, apperrors.NewPersistence("sweep tts cache", err)
	}
	_ = rows.Close()

	deleted := 0
	for _, e := range batch {
		if err := objects.Delete(ctx, e.path); err != nil {
			slog.Warn("tts sweep: object delete failed, keeping row",
				"path", e.path, "error", err)
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM tts_cache WHERE text_hash = ? AND voice_preset = ?`,
			e.hash, e.preset)
		if err != nil {
			return deleted, apperrors.NewPersistence("sweep tts cache", err)
		}
		deleted++
	}
	return deleted, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed")
}

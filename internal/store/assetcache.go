package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/stock"
)

var _ stock.Cache = (*Store)(nil)

// PutAsset caches one normalized provider asset. The cache is global across
// projects; a row that already exists is left untouched (best-effort
// write-through under concurrent searches).
func (s *Store) PutAsset(ctx context.Context, a stock.Asset) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return apperrors.NewPersistence("cache asset", err)
	}

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO asset_cache (provider, asset_id, payload_json, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.Provider, a.ID, string(payload), now.Unix(), now.Add(s.assetTTL).Unix(),
	)
	if err != nil {
		return apperrors.NewPersistence("cache asset", err)
	}
	return nil
}

// GetAsset returns a cached asset, or nil when absent or expired.
func (s *Store) GetAsset(ctx context.Context, provider, id string) (*stock.Asset, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload_json FROM asset_cache
		WHERE provider = ? AND asset_id = ? AND expires_at > ?`,
		provider, id, s.now().UTC().Unix(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistence("read asset cache", err)
	}

	var a stock.Asset
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, apperrors.NewPersistence("decode cached asset", err)
	}
	return &a, nil
}

// SweepAssetCache deletes expired asset rows and reports the count.
func (s *Store) SweepAssetCache(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM asset_cache WHERE expires_at <= ?`, s.now().UTC().Unix())
	if err != nil {
		return 0, apperrors.NewPersistence("sweep asset cache", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewPersistence("sweep asset cache", err)
	}
	return int(affected), nil
}

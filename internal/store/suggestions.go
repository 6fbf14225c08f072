package store

import (
	"context"
	"encoding/json"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/stock"
)

// SaveSuggestions replaces the ranked candidates stored for one segment.
// The candidate order is the rank; callers pass them already sorted.
func (s *Store) SaveSuggestions(ctx context.Context, ownerID, projectID string, ordinal int, candidates []stock.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistence("save suggestions", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := lockProject(ctx, tx, ownerID, projectID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM suggestions WHERE project_id = ? AND ordinal = ?`,
		projectID, ordinal)
	if err != nil {
		return apperrors.NewPersistence("save suggestions", err)
	}

	for i, c := range candidates {
		payload, err := json.Marshal(c)
		if err != nil {
			return apperrors.NewPersistence("save suggestions", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO suggestions (project_id, ordinal, rank, provider, asset_id, payload_json)
			VALUES (?, ?, ?, ?, ?, ?)`,
			projectID, ordinal, i+1, c.Provider, c.ID, string(payload),
		)
		if err != nil {
			return apperrors.NewPersistence("save suggestions", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistence("save suggestions", err)
	}
	return nil
}

// ListSuggestions returns one segment's stored candidates in rank order.
func (s *Store) ListSuggestions(ctx context.Context, ownerID, projectID string, ordinal int) ([]stock.Candidate, error) {
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload_json FROM suggestions
		WHERE project_id = ? AND ordinal = ?
		ORDER BY rank`,
		projectID, ordinal)
	if err != nil {
		return nil, apperrors.NewPersistence("list suggestions", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []stock.Candidate
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, apperrors.NewPersistence("list suggestions", err)
		}
		var c stock.Candidate
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, apperrors.NewPersistence("decode suggestion", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistence("list suggestions", err)
	}
	return candidates, nil
}

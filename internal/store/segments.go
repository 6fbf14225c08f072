package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/storyboard"
)

// Storyboard carries everything ReplaceStoryboard writes in one transaction:
// the (possibly rewritten) script, the quality verdict, the status to land
// on, and the full segment list.
type Storyboard struct {
	Script         string
	QualityOverall *int
	QualityLevel   storyboard.QualityLevel
	Status         storyboard.Status
	Segments       []storyboard.Segment
}

const segmentColumns = `project_id, ordinal, original_text, optimized_text,
	target_seconds, energy, intent, queries_json, fallback_query,
	asset_status, asset_provider, asset_id, asset_url, placeholder_color,
	silence, silence_seconds, speed_factor, audio_url, audio_seconds`

// ReplaceStoryboard swaps a project's segments wholesale and updates the
// script, quality verdict, and status in the same transaction. Existing
// segments and their suggestions are dropped; a re-run never leaves a
// partial mix of old and new rows.
func (s *Store) ReplaceStoryboard(ctx context.Context, ownerID, projectID string, sb Storyboard) error {
	if err := storyboard.ValidateOrdinals(sb.Segments); err != nil {
		return apperrors.NewValidation(err.Error())
	}
	for i := range sb.Segments {
		if err := sb.Segments[i].Validate(); err != nil {
			return apperrors.NewValidation(err.Error())
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistence("replace storyboard", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := lockProject(ctx, tx, ownerID, projectID)
	if err != nil {
		return err
	}
	if sb.Status != current {
		if err := storyboard.Transition(current, sb.Status); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE project_id = ?`, projectID); err != nil {
		return apperrors.NewPersistence("replace storyboard", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM suggestions WHERE project_id = ?`, projectID); err != nil {
		return apperrors.NewPersistence("replace storyboard", err)
	}

	for i := range sb.Segments {
		seg := &sb.Segments[i]
		seg.ProjectID = projectID
		if err := insertSegment(ctx, tx, seg); err != nil {
			return err
		}
	}

	var quality sql.NullInt64
	if sb.QualityOverall != nil {
		quality = sql.NullInt64{Int64: int64(*sb.QualityOverall), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE projects
		SET script = ?, quality_overall = ?, quality_level = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		sb.Script, quality, string(sb.QualityLevel), string(sb.Status),
		s.now().UTC().Unix(), projectID,
	)
	if err != nil {
		return apperrors.NewPersistence("replace storyboard", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistence("replace storyboard", err)
	}
	return nil
}

// UpdateSegment rewrites one segment's mutable fields. The segment must
// already exist; the treatment invariant is revalidated before the write.
func (s *Store) UpdateSegment(ctx context.Context, ownerID, projectID string, seg storyboard.Segment) error {
	if err := seg.Validate(); err != nil {
		return apperrors.NewValidation(err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistence("update segment", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := lockProject(ctx, tx, ownerID, projectID); err != nil {
		return err
	}

	queries, err := json.Marshal(seg.Queries)
	if err != nil {
		return apperrors.NewPersistence("update segment", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE segments SET
			original_text = ?, optimized_text = ?, target_seconds = ?,
			energy = ?, intent = ?, queries_json = ?, fallback_query = ?,
			asset_status = ?, asset_provider = ?, asset_id = ?, asset_url = ?,
			placeholder_color = ?, silence = ?, silence_seconds = ?,
			speed_factor = ?, audio_url = ?, audio_seconds = ?
		WHERE project_id = ? AND ordinal = ?`,
		seg.OriginalText, seg.OptimizedText, seg.TargetSeconds,
		seg.Energy, string(seg.Intent), string(queries), seg.FallbackQuery,
		string(seg.AssetStatus), seg.AssetProvider, seg.AssetID, seg.AssetURL,
		seg.PlaceholderColor, boolInt(seg.Silence), seg.SilenceSeconds,
		seg.SpeedFactor, seg.AudioURL, seg.AudioSeconds,
		projectID, seg.Ordinal,
	)
	if err != nil {
		return apperrors.NewPersistence("update segment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewPersistence("update segment", err)
	}
	if affected == 0 {
		return apperrors.NewNotFound("segment", fmt.Sprintf("%s/%d", projectID, seg.Ordinal))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistence("update segment", err)
	}
	return nil
}

// ListSegments returns a project's segments in ordinal order.
func (s *Store) ListSegments(ctx context.Context, ownerID, projectID string) ([]storyboard.Segment, error) {
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE project_id = ? ORDER BY ordinal`,
		projectID)
	if err != nil {
		return nil, apperrors.NewPersistence("list segments", err)
	}
	defer func() { _ = rows.Close() }()

	var segments []storyboard.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *seg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistence("list segments", err)
	}
	return segments, nil
}

func insertSegment(ctx context.Context, tx *sql.Tx, seg *storyboard.Segment) error {
	queries, err := json.Marshal(seg.Queries)
	if err != nil {
		return apperrors.NewPersistence("insert segment", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO segments (`+segmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.ProjectID, seg.Ordinal, seg.OriginalText, seg.OptimizedText,
		seg.TargetSeconds, seg.Energy, string(seg.Intent), string(queries),
		seg.FallbackQuery, string(seg.AssetStatus), seg.AssetProvider,
		seg.AssetID, seg.AssetURL, seg.PlaceholderColor, boolInt(seg.Silence),
		seg.SilenceSeconds, seg.SpeedFactor, seg.AudioURL, seg.AudioSeconds,
	)
	if err != nil {
		return apperrors.NewPersistence("insert segment", err)
	}
	return nil
}

func scanSegment(row rowScanner) (*storyboard.Segment, error) {
	var (
		seg            storyboard.Segment
		intent, status string
		queriesJSON    string
		silence        int
	)
	err := row.Scan(&seg.ProjectID, &seg.Ordinal, &seg.OriginalText,
		&seg.OptimizedText, &seg.TargetSeconds, &seg.Energy, &intent,
		&queriesJSON, &seg.FallbackQuery, &status, &seg.AssetProvider,
		&seg.AssetID, &seg.AssetURL, &seg.PlaceholderColor, &silence,
		&seg.SilenceSeconds, &seg.SpeedFactor, &seg.AudioURL, &seg.AudioSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("segment", "")
	}
	if err != nil {
		return nil, apperrors.NewPersistence("load segment", err)
	}

	seg.Intent = storyboard.Intent(intent)
	seg.AssetStatus = storyboard.AssetStatus(status)
	seg.Silence = silence != 0
	if queriesJSON != "" {
		if err := json.Unmarshal([]byte(queriesJSON), &seg.Queries); err != nil {
			return nil, apperrors.NewPersistence("decode segment queries", err)
		}
	}
	return &seg, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

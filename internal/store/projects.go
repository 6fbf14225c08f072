package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/storyboard"
)

const projectColumns = `id, owner_id, title, script, status, quality_overall,
	quality_level, failure_reason, created_at, updated_at`

// CreateProject inserts a new draft project and returns it.
func (s *Store) CreateProject(ctx context.Context, ownerID, title, script string) (*storyboard.Project, error) {
	now := s.now().UTC()
	p := &storyboard.Project{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Script:    script,
		Status:    storyboard.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, title, script, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Title, p.Script, string(p.Status), now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, apperrors.NewPersistence("create project", err)
	}
	return p, nil
}

// GetProject loads a project by id, rejecting cross-owner access.
func (s *Store) GetProject(ctx context.Context, ownerID, projectID string) (*storyboard.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID)
	return scanProject(row, ownerID, projectID)
}

// UpdateProjectStatus moves a project along the lifecycle, validating the
// transition against the stored status inside one transaction.
func (s *Store) UpdateProjectStatus(ctx context.Context, ownerID, projectID string, next storyboard.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistence("update project status", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := lockProject(ctx, tx, ownerID, projectID)
	if err != nil {
		return err
	}
	if err := storyboard.Transition(current, next); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		string(next), s.now().UTC().Unix(), projectID,
	)
	if err != nil {
		return apperrors.NewPersistence("update project status", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistence("update project status", err)
	}
	return nil
}

// UpdateProjectScript replaces the project script, keeping everything else.
// Used when auto-optimization produces a rewrite before segmentation runs.
func (s *Store) UpdateProjectScript(ctx context.Context, ownerID, projectID, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistence("update project script", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := lockProject(ctx, tx, ownerID, projectID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET script = ?, updated_at = ? WHERE id = ?`,
		script, s.now().UTC().Unix(), projectID,
	)
	if err != nil {
		return apperrors.NewPersistence("update project script", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistence("update project script", err)
	}
	return nil
}

// SetProjectFailure marks a project failed with a reason. Works from every
// status, including an already-failed project (the reason is overwritten).
func (s *Store) SetProjectFailure(ctx context.Context, ownerID, projectID, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistence("set project failure", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := lockProject(ctx, tx, ownerID, projectID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ?`,
		string(storyboard.StatusFailed), reason, s.now().UTC().Unix(), projectID,
	)
	if err != nil {
		return apperrors.NewPersistence("set project failure", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistence("set project failure", err)
	}
	return nil
}

// lockProject reads a project's status within tx and verifies ownership.
func lockProject(ctx context.Context, tx *sql.Tx, ownerID, projectID string) (storyboard.Status, error) {
	var owner, status string
	err := tx.QueryRowContext(ctx,
		`SELECT owner_id, status FROM projects WHERE id = ?`, projectID,
	).Scan(&owner, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewNotFound("project", projectID)
	}
	if err != nil {
		return "", apperrors.NewPersistence("load project", err)
	}
	if owner != ownerID {
		return "", apperrors.NewForbidden("project", projectID)
	}
	return storyboard.Status(status), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner, ownerID, projectID string) (*storyboard.Project, error) {
	var (
		p              storyboard.Project
		status, level  string
		qualityOverall sql.NullInt64
		created, upd   int64
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Script, &status,
		&qualityOverall, &level, &p.FailureReason, &created, &upd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("project", projectID)
	}
	if err != nil {
		return nil, apperrors.NewPersistence("load project", err)
	}
	if p.OwnerID != ownerID {
		return nil, apperrors.NewForbidden("project", projectID)
	}

	p.Status = storyboard.Status(status)
	p.QualityLevel = storyboard.QualityLevel(level)
	if qualityOverall.Valid {
		v := int(qualityOverall.Int64)
		p.QualityOverall = &v
	}
	p.CreatedAt = unixTime(created)
	p.UpdatedAt = unixTime(upd)
	return &p, nil
}

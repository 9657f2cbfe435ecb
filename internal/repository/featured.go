// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ripplefund/ripple/internal/models"
)

// ErrAlreadyFeatured is returned when a project is featured twice.
var ErrAlreadyFeatured = errors.New("project is already featured")

// FeatureProject marks a project as featured. The referenced project must
// exist; featuring it twice fails with ErrAlreadyFeatured.
func (r *Repository) FeatureProject(ctx context.Context, projectID int64) (*models.FeaturedProject, error) {
	if _, err := r.GetProjectByID(ctx, projectID); err != nil {
		return nil, err
	}

	var count int64
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM featured_projects WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyFeatured
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO featured_projects (project_id, created_at) VALUES (?, ?)`, projectID, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.FeaturedProject{ID: id, ProjectID: projectID, CreatedAt: now}, nil
}

// ListFeaturedProjects returns the full project records currently featured.
func (r *Repository) ListFeaturedProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.SelectContext(ctx, &projects,
		`SELECT p.* FROM projects p
		 JOIN featured_projects f ON f.project_id = p.id
		 ORDER BY f.created_at DESC, f.id DESC`)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// UnfeatureProject removes a project from the featured set.
func (r *Repository) UnfeatureProject(ctx context.Context, projectID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM featured_projects WHERE project_id = ?`, projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

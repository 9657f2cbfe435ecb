// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/ripplefund/ripple/internal/models"
)

// CreateProject inserts the project and fills in its ID and timestamps.
func (r *Repository) CreateProject(ctx context.Context, project *models.Project) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (user_id, name, address, zipcode, amount, duration, title,
		                       about, story, category, media_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.UserID, project.Name, project.Address, project.Zipcode, project.Amount,
		project.Duration, project.Title, project.About, project.Story, project.Category,
		project.MediaPath, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

// GetProjectByID retrieves a project by its ID.
func (r *Repository) GetProjectByID(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &project, nil
}

// ListProjects returns all projects, newest first.
func (r *Repository) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.SelectContext(ctx, &projects, `SELECT * FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ListProjectsByCategory returns projects in a category, newest first.
func (r *Repository) ListProjectsByCategory(ctx context.Context, category string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.SelectContext(ctx, &projects,
		`SELECT * FROM projects WHERE category = ? ORDER BY created_at DESC, id DESC`, category)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject updates the mutable project fields.
func (r *Repository) UpdateProject(ctx context.Context, project *models.Project) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, address = ?, zipcode = ?, amount = ?, duration = ?,
		                     title = ?, about = ?, story = ?, category = ?, media_path = ?,
		                     updated_at = ?
		 WHERE id = ?`,
		project.Name, project.Address, project.Zipcode, project.Amount, project.Duration,
		project.Title, project.About, project.Story, project.Category, project.MediaPath,
		time.Now().UTC(), project.ID)
	return err
}

// DeleteProject deletes a project by its ID.
func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
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

// ListBackers returns a project's backers, newest first.
func (r *Repository) ListBackers(ctx context.Context, projectID int64) ([]models.Backer, error) {
	var backers []models.Backer
	err := r.db.SelectContext(ctx, &backers,
		`SELECT * FROM backers WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	return backers, nil
}

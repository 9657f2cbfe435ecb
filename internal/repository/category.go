// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/ripplefund/ripple/internal/models"
)

// CreateCategory inserts a category and fills in its ID.
func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, created_at) VALUES (?, ?)`, category.Name, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	category.ID = id
	category.CreatedAt = now
	return nil
}

// ListCategories returns all categories in alphabetical order.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.SelectContext(ctx, &categories, `SELECT * FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// DeleteCategory deletes a category by its ID.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
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

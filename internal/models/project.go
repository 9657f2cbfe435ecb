// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Project is a crowdfunding campaign owned by a user.
type Project struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64          `db:"id" json:"id"`
	UserID    int64          `db:"user_id" json:"user_id"`
	Name      string         `db:"name" json:"name"`
	Address   string         `db:"address" json:"address"`
	Zipcode   string         `db:"zipcode" json:"zipcode"`
	Amount    int64          `db:"amount" json:"amount"`
	Duration  time.Time      `db:"duration" json:"duration"`
	Title     string         `db:"title" json:"title"`
	About     string         `db:"about" json:"about"`
	Story     string         `db:"story" json:"story"`
	Category  string         `db:"category" json:"category"`
	MediaPath sql.NullString `db:"media_path" json:"media_path,omitzero"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Backer records a contribution to a project.
type Backer struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	ProjectID int64     `db:"project_id" json:"project_id"`
	Email     string    `db:"email" json:"email"`
	Amount    int64     `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category is a curated project category.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FeaturedProject marks a project as curated onto the landing page.
type FeaturedProject struct {
	ID        int64     `db:"id" json:"id"`
	ProjectID int64     `db:"project_id" json:"project_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

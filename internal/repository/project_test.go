// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/ripplefund/ripple/internal/models"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCRUD(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")
	assert.NotZero(t, project.ID)

	loaded, err := repo.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Community Garden", loaded.Title)
	assert.Equal(t, owner.ID, loaded.UserID)

	loaded.Title = "Rooftop Garden"
	require.NoError(t, repo.UpdateProject(ctx, loaded))

	updated, err := repo.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rooftop Garden", updated.Title)

	require.NoError(t, repo.DeleteProject(ctx, project.ID))
	_, err = repo.GetProjectByID(ctx, project.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteProjectNotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.DeleteProject(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListProjectsByCategory(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	garden := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")
	arts := &models.Project{
		UserID:   owner.ID,
		Name:     "Mural",
		Title:    "Neighborhood Mural",
		Amount:   2000,
		Category: "arts",
	}
	require.NoError(t, repo.CreateProject(ctx, arts))

	all, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	community, err := repo.ListProjectsByCategory(ctx, garden.Category)
	require.NoError(t, err)
	require.Len(t, community, 1)
	assert.Equal(t, garden.ID, community[0].ID)
}

func TestFeaturedProjects(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	owner := testutil.NewTestUser(t, repo, "owner@example.com", "hash")
	project := testutil.NewTestProject(t, repo, owner.ID, "Community Garden")

	featured, err := repo.FeatureProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, featured.ProjectID)

	_, err = repo.FeatureProject(ctx, project.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyFeatured)

	_, err = repo.FeatureProject(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := repo.ListFeaturedProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, project.ID, list[0].ID)

	require.NoError(t, repo.UnfeatureProject(ctx, project.ID))
	list, err = repo.ListFeaturedProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCategories(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateCategory(ctx, &models.Category{Name: "community"}))
	require.NoError(t, repo.CreateCategory(ctx, &models.Category{Name: "arts"}))

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	// Ordered by name.
	assert.Equal(t, "arts", categories[0].Name)

	require.NoError(t, repo.DeleteCategory(ctx, categories[0].ID))
	categories, err = repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

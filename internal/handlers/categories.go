// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/models"
)

// ListCategories returns all curated categories.
func (h *Handler) ListCategories(c echo.Context) error {
	categories, err := h.repo.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// CreateCategory adds a category. Superuser only.
func (h *Handler) CreateCategory(c echo.Context) error {
	var req createCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate(field("name", req.Name != "", "name is required")); err != nil {
		return err
	}

	category := &models.Category{Name: req.Name}
	if err := h.repo.CreateCategory(c.Request().Context(), category); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, category)
}

// DeleteCategory removes a category. Superuser only.
func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.repo.DeleteCategory(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFeatured returns the curated landing-page projects.
func (h *Handler) ListFeatured(c echo.Context) error {
	projects, err := h.repo.ListFeaturedProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

// FeatureProject adds a project to the curated list. Superuser only.
func (h *Handler) FeatureProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	featured, err := h.repo.FeatureProject(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, featured)
}

// UnfeatureProject removes a project from the curated list. Superuser only.
func (h *Handler) UnfeatureProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.repo.UnfeatureProject(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

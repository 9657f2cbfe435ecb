// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"database/sql"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/models"
)

// CreateProject creates a campaign from a multipart form. The media file is
// optional and stored under the configured upload directory.
func (h *Handler) CreateProject(c echo.Context) error {
	user := userFrom(c)

	amount, amountErr := strconv.ParseInt(c.FormValue("amount"), 10, 64)
	duration, durationErr := time.Parse("2006-01-02", c.FormValue("duration"))

	if err := validate(
		field("name", c.FormValue("name") != "", "name is required"),
		field("title", c.FormValue("title") != "", "title is required"),
		field("amount", amountErr == nil && amount > 0, "amount must be a positive integer"),
		field("duration", durationErr == nil, "duration must be YYYY-MM-DD"),
		field("category", c.FormValue("category") != "", "category is required"),
	); err != nil {
		return err
	}

	project := &models.Project{
		UserID:   user.ID,
		Name:     c.FormValue("name"),
		Address:  c.FormValue("address"),
		Zipcode:  c.FormValue("zipcode"),
		Amount:   amount,
		Duration: duration,
		Title:    c.FormValue("title"),
		About:    c.FormValue("about"),
		Story:    c.FormValue("story"),
		Category: c.FormValue("category"),
	}

	if file, err := c.FormFile("media"); err == nil {
		path, err := h.saveUpload(file)
		if err != nil {
			return err
		}
		project.MediaPath = sql.NullString{String: path, Valid: true}
	}

	if err := h.repo.CreateProject(c.Request().Context(), project); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, project)
}

// ListProjects returns all campaigns, optionally filtered by category.
func (h *Handler) ListProjects(c echo.Context) error {
	ctx := c.Request().Context()
	if category := c.QueryParam("category"); category != "" {
		projects, err := h.repo.ListProjectsByCategory(ctx, category)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, projects)
	}

	projects, err := h.repo.ListProjects(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

// GetProject returns a single campaign.
func (h *Handler) GetProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	project, err := h.repo.GetProjectByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

type updateProjectRequest struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	Zipcode  *string `json:"zipcode"`
	Amount   *int64  `json:"amount"`
	Duration *string `json:"duration"`
	Title    *string `json:"title"`
	About    *string `json:"about"`
	Story    *string `json:"story"`
	Category *string `json:"category"`
}

// UpdateProject updates a campaign. Only the owner or a superuser may.
func (h *Handler) UpdateProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	project, err := h.repo.GetProjectByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.requireOwner(c, project.UserID); err != nil {
		return err
	}

	var req updateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Address != nil {
		project.Address = *req.Address
	}
	if req.Zipcode != nil {
		project.Zipcode = *req.Zipcode
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return validate(field("amount", false, "amount must be a positive integer"))
		}
		project.Amount = *req.Amount
	}
	if req.Duration != nil {
		duration, err := time.Parse("2006-01-02", *req.Duration)
		if err != nil {
			return validate(field("duration", false, "duration must be YYYY-MM-DD"))
		}
		project.Duration = duration
	}
	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.About != nil {
		project.About = *req.About
	}
	if req.Story != nil {
		project.Story = *req.Story
	}
	if req.Category != nil {
		project.Category = *req.Category
	}

	if err := h.repo.UpdateProject(c.Request().Context(), project); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// DeleteProject removes a campaign. Only the owner or a superuser may.
func (h *Handler) DeleteProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	project, err := h.repo.GetProjectByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := h.requireOwner(c, project.UserID); err != nil {
		return err
	}

	if err := h.repo.DeleteProject(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBackers returns the contributions recorded for a campaign.
func (h *Handler) ListBackers(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.repo.GetProjectByID(c.Request().Context(), id); err != nil {
		return err
	}
	backers, err := h.repo.ListBackers(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, backers)
}

// requireOwner admits the resource owner and superusers.
func (h *Handler) requireOwner(c echo.Context, ownerID int64) error {
	user := userFrom(c)
	if user == nil {
		return ErrForbidden
	}
	if user.ID != ownerID && !user.IsSuperuser {
		return ErrForbidden
	}
	return nil
}

// saveUpload stores an uploaded file under a collision-free name and returns
// its path relative to the upload directory.
func (h *Handler) saveUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.cfg.Server.UploadDir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + filepath.Ext(file.Filename)
	dst, err := os.Create(filepath.Join(h.cfg.Server.UploadDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return name, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ManuelReschke/GridFox/app/models"
	"github.com/ManuelReschke/GridFox/app/repository"
	"github.com/ManuelReschke/GridFox/internal/pkg/billing"
	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// AccessVerifier is implemented by *billing.AccessService.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, subscriptionID, email, gridID string) (*models.Subscription, error)
}

// ContentUpdater is implemented by *billing.ContentService.
type ContentUpdater interface {
	UpdateContent(ctx context.Context, gridID, subscriptionID, email string, content models.GridContent) (*models.Grid, error)
}

type verifyAccessRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	Email          string `json:"email"`
	GridID         string `json:"gridId"`
}

type contentRequest struct {
	SubscriptionID string  `json:"subscriptionId" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Title          *string `json:"title" validate:"omitempty,max=100"`
	Description    *string `json:"description" validate:"omitempty,max=500"`
	ImageURL       *string `json:"image_url" validate:"omitempty,max=2048,http_url"`
	Content        *string `json:"content" validate:"omitempty,max=5000"`
	ExternalURL    *string `json:"external_url" validate:"omitempty,max=2048,http_url"`
}

// gridView is the public shape of a grid; owner identifiers stay private.
type gridView struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"image_url"`
	ExternalURL *string    `json:"external_url"`
	Content     *string    `json:"content"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// GridController serves ownership checks, content edits and grid reads.
type GridController struct {
	access   AccessVerifier
	content  ContentUpdater
	grids    repository.GridRepository
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewGridController(access AccessVerifier, content ContentUpdater, grids repository.GridRepository, m *metrics.Metrics) *GridController {
	return &GridController{
		access:   access,
		content:  content,
		grids:    grids,
		metrics:  m,
		validate: newValidator(),
	}
}

// HandleVerifyAccess handles POST /api/grids/verify-access.
func (gc *GridController) HandleVerifyAccess(c *fiber.Ctx) error {
	var req verifyAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.SubscriptionID == "" || req.Email == "" || req.GridID == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing required fields")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	_, err := gc.access.VerifyAccess(ctx, req.SubscriptionID, req.Email, req.GridID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrSubscriptionNotFound):
			gc.count("not_found")
			return jsonError(c, fiber.StatusNotFound, "Invalid subscription ID")
		case billing.IsForbidden(err):
			gc.count("denied")
			return jsonError(c, fiber.StatusForbidden, forbiddenMessage(err))
		default:
			log.Errorf("[Grid] verify access for grid %s: %v", req.GridID, err)
			gc.count("error")
			return jsonError(c, fiber.StatusInternalServerError, "Failed to verify access")
		}
	}

	gc.count("granted")
	return c.JSON(fiber.Map{"success": true})
}

// HandleUpdateContent handles PUT /api/grids/:id/content.
func (gc *GridController) HandleUpdateContent(c *fiber.Ctx) error {
	gridID := strings.TrimSpace(c.Params("id"))

	var req contentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request",
			"details": []string{"body must be a JSON object"},
		})
	}
	if err := gc.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request",
			"details": validationDetails(err),
		})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	grid, err := gc.content.UpdateContent(ctx, gridID, req.SubscriptionID, req.Email, models.GridContent{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		ExternalURL: req.ExternalURL,
		Content:     req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrSubscriptionNotFound), errors.Is(err, billing.ErrSubscriptionInactive):
			gc.count("denied")
			return jsonError(c, fiber.StatusForbidden, "Invalid or inactive subscription")
		case billing.IsForbidden(err):
			gc.count("denied")
			return jsonError(c, fiber.StatusForbidden, forbiddenMessage(err))
		case errors.Is(err, billing.ErrGridNotFound):
			return jsonError(c, fiber.StatusNotFound, "Grid not found")
		default:
			log.Errorf("[Grid] update content for grid %s: %v", gridID, err)
			return jsonError(c, fiber.StatusInternalServerError, "Failed to update grid")
		}
	}

	gc.count("granted")
	log.Infof("[Grid] content updated for grid %s", grid.ID)
	return c.JSON(grid)
}

// HandleGetGrid handles GET /api/grids/:id.
func (gc *GridController) HandleGetGrid(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	grid, err := gc.grids.GetByID(ctx, c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Grid not found")
		}
		log.Errorf("[Grid] load grid %s: %v", c.Params("id"), err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load grid")
	}

	return c.JSON(gridView{
		ID:          grid.ID,
		Status:      grid.Status,
		Title:       grid.Title,
		Description: grid.Description,
		ImageURL:    grid.ImageURL,
		ExternalURL: grid.ExternalURL,
		Content:     grid.Content,
		StartDate:   grid.StartDate,
		EndDate:     grid.EndDate,
	})
}

func (gc *GridController) count(outcome string) {
	if gc.metrics != nil {
		gc.metrics.AccessChecks.WithLabelValues(outcome).Inc()
	}
}

func forbiddenMessage(err error) string {
	switch {
	case errors.Is(err, billing.ErrSubscriptionInactive):
		return "Subscription is not active"
	case errors.Is(err, billing.ErrSubscriptionGridMismatch):
		return "Subscription is not for this grid"
	case errors.Is(err, billing.ErrEmailMismatch):
		return "Email does not match subscription"
	case errors.Is(err, billing.ErrNotOwner):
		return "Grid not owned by this customer"
	default:
		return "Forbidden"
	}
}

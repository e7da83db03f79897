package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/GridFox/internal/pkg/billing"
	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// CheckoutCreator is implemented by *billing.CheckoutService.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutResult, error)
}

type checkoutRequest struct {
	GridID       string `json:"gridId"`
	Email        string `json:"email"`
	BillingCycle string `json:"billingCycle"`
	ReturnURL    string `json:"returnUrl"`
}

// CheckoutController serves the purchase entry point.
type CheckoutController struct {
	checkout CheckoutCreator
	metrics  *metrics.Metrics
}

func NewCheckoutController(checkout CheckoutCreator, m *metrics.Metrics) *CheckoutController {
	return &CheckoutController{checkout: checkout, metrics: m}
}

// HandleCreateSession handles POST /api/checkout/create-session.
func (cc *CheckoutController) HandleCreateSession(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		cc.count("unknown", "invalid")
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	cycle := "unknown"
	if parsed, err := billing.ParseBillingCycle(req.BillingCycle); err == nil {
		cycle = string(parsed)
	}

	if strings.TrimSpace(req.GridID) == "" || strings.TrimSpace(req.Email) == "" {
		cc.count(cycle, "invalid")
		return jsonError(c, fiber.StatusBadRequest, "Missing required fields")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := cc.checkout.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		GridID:       req.GridID,
		Email:        req.Email,
		BillingCycle: req.BillingCycle,
		ReturnURL:    req.ReturnURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrMissingGridID),
			errors.Is(err, billing.ErrInvalidEmail),
			errors.Is(err, billing.ErrInvalidBillingCycle):
			cc.count(cycle, "invalid")
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, billing.ErrGridNotFound):
			cc.count(cycle, "not_found")
			return jsonError(c, fiber.StatusNotFound, "Grid not found")
		case errors.Is(err, billing.ErrGridUnavailable):
			cc.count(cycle, "conflict")
			return jsonError(c, fiber.StatusConflict, "Grid is already taken")
		default:
			log.Errorf("[Checkout] grid %s from %s: %v", req.GridID, GetClientIP(c), err)
			cc.count(cycle, "error")
			return jsonError(c, fiber.StatusInternalServerError, "Failed to create checkout session")
		}
	}

	cc.count(cycle, "created")
	return c.JSON(fiber.Map{"sessionUrl": res.SessionURL})
}

func (cc *CheckoutController) count(cycle, outcome string) {
	if cc.metrics != nil {
		cc.metrics.CheckoutSessions.WithLabelValues(cycle, outcome).Inc()
	}
}

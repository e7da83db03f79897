package router

import (
	"errors"
	"time"

	"github.com/ManuelReschke/GridFox/app/controllers"
	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/idempotency"
)

// ApiRouter serves the storefront JSON API.
type ApiRouter struct {
	Checkout *controllers.CheckoutController
	Grids    *controllers.GridController
	Webhooks *controllers.WebhookController
	Metrics  *metrics.Metrics

	// IdempotencyStorage backs X-Idempotency-Key replays; nil keeps them in memory.
	IdempotencyStorage fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api.Post("/checkout/create-session", keepServerErrorsOut, idempotency.New(idempotency.Config{
		Lifetime:  30 * time.Minute,
		KeyHeader: "X-Idempotency-Key",
		Storage:   h.IdempotencyStorage,
	}), refuseServerErrors, h.Checkout.HandleCreateSession)

	api.Post("/grids/verify-access", h.Grids.HandleVerifyAccess)
	api.Put("/grids/:id/content", h.Grids.HandleUpdateContent)
	api.Get("/grids/:id", h.Grids.HandleGetGrid)

	api.Post("/webhooks/stripe", h.Webhooks.HandleStripeWebhook)

	if h.Metrics != nil {
		app.Get("/metrics", h.Metrics.Handler())
	}
}

// errNotReplayable keeps a written response out of the idempotency store,
// which skips storing whenever the inner handler returns an error.
var errNotReplayable = errors.New("response not replayable")

// refuseServerErrors runs inside the idempotency middleware. A 5xx from a
// provider outage must not be replayed to a retry with the same key.
func refuseServerErrors(c *fiber.Ctx) error {
	if err := c.Next(); err != nil {
		return err
	}
	if c.Response().StatusCode() >= fiber.StatusInternalServerError {
		return errNotReplayable
	}
	return nil
}

// keepServerErrorsOut runs outside the idempotency middleware and sends the
// already written response.
func keepServerErrorsOut(c *fiber.Ctx) error {
	if err := c.Next(); err != nil && !errors.Is(err, errNotReplayable) {
		return err
	}
	return nil
}

package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/GridFox/app/models"
	"github.com/ManuelReschke/GridFox/internal/pkg/billing"
	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// EventConstructor verifies and decodes a signed delivery.
type EventConstructor interface {
	ConstructEvent(payload []byte, signature string) (billing.Event, error)
}

// EventHandler is implemented by *billing.Reconciler.
type EventHandler interface {
	Handle(ctx context.Context, ev billing.Event) billing.Result
}

// EventRecorder is implemented by *billing.EventLog.
type EventRecorder interface {
	Record(ctx context.Context, ev billing.Event, payload []byte) (*models.WebhookEvent, bool, error)
	MarkProcessed(ctx context.Context, id uint, res billing.Result) error
}

// WebhookController receives Stripe deliveries.
type WebhookController struct {
	events   EventConstructor
	recorder EventRecorder
	handler  EventHandler
	metrics  *metrics.Metrics
}

func NewWebhookController(events EventConstructor, recorder EventRecorder, handler EventHandler, m *metrics.Metrics) *WebhookController {
	return &WebhookController{events: events, recorder: recorder, handler: handler, metrics: m}
}

// HandleStripeWebhook handles POST /api/webhooks/stripe. Failures answer 400
// so Stripe redelivers.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	if signature == "" {
		wc.count("unknown", "rejected")
		return jsonError(c, fiber.StatusBadRequest, "Missing Stripe-Signature header")
	}
	payload := append([]byte(nil), c.Body()...)

	ev, err := wc.events.ConstructEvent(payload, signature)
	if err != nil {
		wc.count("unknown", "rejected")
		if errors.Is(err, billing.ErrInvalidSignature) {
			log.Warnf("[Webhook] rejected delivery from %s: %v", GetClientIP(c), err)
			return jsonError(c, fiber.StatusBadRequest, "Invalid signature")
		}
		log.Warnf("[Webhook] undecodable delivery: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "Invalid payload")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	stored, needsProcessing, err := wc.recorder.Record(ctx, ev, payload)
	if err != nil {
		log.Errorf("[Webhook] record event %s: %v", ev.EventID(), err)
		wc.count(ev.EventType(), "error")
		return jsonError(c, fiber.StatusBadRequest, "Webhook could not be recorded")
	}
	if !needsProcessing {
		wc.count(ev.EventType(), "duplicate")
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	res := wc.handler.Handle(ctx, ev)
	if err := wc.recorder.MarkProcessed(ctx, stored.ID, res); err != nil {
		log.Errorf("[Webhook] mark event %s processed: %v", ev.EventID(), err)
	}

	if !res.Success {
		log.Errorf("[Webhook] %s %s failed: %s", ev.EventType(), ev.EventID(), res.Error)
		wc.count(ev.EventType(), "failed")
		return jsonError(c, fiber.StatusBadRequest, "Webhook handler failed")
	}

	wc.count(ev.EventType(), "processed")
	return c.JSON(fiber.Map{"received": true, "message": res.Message})
}

func (wc *WebhookController) count(eventType, outcome string) {
	if wc.metrics == nil {
		return
	}
	switch eventType {
	case billing.EventCheckoutSessionCompleted, billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
	default:
		eventType = "other"
	}
	wc.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

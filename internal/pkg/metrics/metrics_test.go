package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.CheckoutSessions.WithLabelValues("monthly", "created").Inc()
	m.WebhookEvents.WithLabelValues("checkout.session.completed", "processed").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CheckoutSessions.WithLabelValues("monthly", "created")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.WebhookEvents.WithLabelValues("checkout.session.completed", "processed")))

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `gridfox_checkout_sessions_total{cycle="monthly",outcome="created"} 1`)
}

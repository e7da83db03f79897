package controllers

import (
	"strings"
	"testing"
	"time"

	"github.com/ManuelReschke/GridFox/app/models"
	"github.com/ManuelReschke/GridFox/app/repository"
	"github.com/ManuelReschke/GridFox/internal/pkg/billing"
	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gridFixture struct {
	app     *fiber.App
	store   *repository.MemoryStore
	metrics *metrics.Metrics
}

// newGridFixture seeds grid g1 owned by cus_1 through active subscription
// sub_1, plus an inactive sub_old on the same grid.
func newGridFixture(t *testing.T) *gridFixture {
	t.Helper()
	repos, store := repository.NewMemoryRepositories()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	store.PutGrid(models.Grid{
		ID:             "g1",
		Status:         models.GridStatusActive,
		Title:          strPtr("Original"),
		SubscriptionID: strPtr("sub_1"),
		CustomerID:     strPtr("cus_1"),
		StartDate:      &start,
		EndDate:        &end,
	})
	store.PutGrid(models.Grid{ID: "g2", Status: models.GridStatusInactive})
	store.PutUser(*models.NewUser("cus_1", "owner@example.com", models.SubscriptionStatusActive))
	store.PutSubscription(models.Subscription{ID: "sub_1", CustomerID: "cus_1", GridID: strPtr("g1"), Status: models.SubscriptionStatusActive})
	store.PutSubscription(models.Subscription{ID: "sub_old", CustomerID: "cus_1", GridID: strPtr("g1"), Status: models.SubscriptionStatusCanceled})

	access := billing.NewAccessService(repos.Subscription, repos.User)
	content := billing.NewContentService(access, repos.Grid)
	m := metrics.New()
	gc := NewGridController(access, content, repos.Grid, m)

	app := fiber.New()
	app.Post("/api/grids/verify-access", gc.HandleVerifyAccess)
	app.Put("/api/grids/:id/content", gc.HandleUpdateContent)
	app.Get("/api/grids/:id", gc.HandleGetGrid)
	return &gridFixture{app: app, store: store, metrics: m}
}

func TestVerifyAccess(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"owner", `{"subscriptionId":"sub_1","email":"owner@example.com","gridId":"g1"}`, fiber.StatusOK, ""},
		{"missing fields", `{"subscriptionId":"sub_1","gridId":"g1"}`, fiber.StatusBadRequest, "Missing required fields"},
		{"unknown subscription", `{"subscriptionId":"sub_x","email":"owner@example.com","gridId":"g1"}`, fiber.StatusNotFound, "Invalid subscription ID"},
		{"inactive subscription", `{"subscriptionId":"sub_old","email":"owner@example.com","gridId":"g1"}`, fiber.StatusForbidden, "Subscription is not active"},
		{"wrong grid", `{"subscriptionId":"sub_1","email":"owner@example.com","gridId":"g2"}`, fiber.StatusForbidden, "Subscription is not for this grid"},
		{"wrong email", `{"subscriptionId":"sub_1","email":"someone@example.com","gridId":"g1"}`, fiber.StatusForbidden, "Email does not match subscription"},
		{"email case differs", `{"subscriptionId":"sub_1","email":"Owner@example.com","gridId":"g1"}`, fiber.StatusForbidden, "Email does not match subscription"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGridFixture(t)
			resp, err := f.app.Test(jsonRequest("POST", "/api/grids/verify-access", tt.body), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			body := decodeBody(t, resp)
			if tt.errMsg == "" {
				assert.Equal(t, true, body["success"])
			} else {
				assert.Equal(t, tt.errMsg, body["error"])
			}
		})
	}
}

func TestVerifyAccessCountsOutcomes(t *testing.T) {
	f := newGridFixture(t)
	_, err := f.app.Test(jsonRequest("POST", "/api/grids/verify-access", `{"subscriptionId":"sub_1","email":"owner@example.com","gridId":"g1"}`), -1)
	require.NoError(t, err)
	_, err = f.app.Test(jsonRequest("POST", "/api/grids/verify-access", `{"subscriptionId":"sub_1","email":"x@example.com","gridId":"g1"}`), -1)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AccessChecks.WithLabelValues("granted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AccessChecks.WithLabelValues("denied")))
}

func TestUpdateContentByOwner(t *testing.T) {
	f := newGridFixture(t)

	resp, err := f.app.Test(jsonRequest("PUT", "/api/grids/g1/content",
		`{"subscriptionId":"sub_1","email":"owner@example.com","title":"My shop","external_url":"https://shop.example.com"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "My shop", body["title"])
	assert.Equal(t, "https://shop.example.com", body["external_url"])

	grid, ok := f.store.Grid("g1")
	require.True(t, ok)
	assert.Equal(t, "My shop", *grid.Title)
	assert.Equal(t, models.GridStatusActive, grid.Status)
}

func TestUpdateContentRejectsInactiveSubscription(t *testing.T) {
	for _, sub := range []string{"sub_old", "sub_missing"} {
		t.Run(sub, func(t *testing.T) {
			f := newGridFixture(t)

			resp, err := f.app.Test(jsonRequest("PUT", "/api/grids/g1/content",
				`{"subscriptionId":"`+sub+`","email":"owner@example.com","title":"Hijacked"}`), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "Invalid or inactive subscription", decodeBody(t, resp)["error"])

			grid, _ := f.store.Grid("g1")
			assert.Equal(t, "Original", *grid.Title)
		})
	}
}

func TestUpdateContentForbiddenAndNotFound(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		errMsg string
	}{
		{"wrong email", "/api/grids/g1/content", `{"subscriptionId":"sub_1","email":"x@example.com","title":"t"}`, fiber.StatusForbidden, "Email does not match subscription"},
		{"wrong grid", "/api/grids/g2/content", `{"subscriptionId":"sub_1","email":"owner@example.com","title":"t"}`, fiber.StatusForbidden, "Subscription is not for this grid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGridFixture(t)
			resp, err := f.app.Test(jsonRequest("PUT", tt.path, tt.body), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.errMsg, decodeBody(t, resp)["error"])
		})
	}
}

func TestUpdateContentNotOwnedByCustomer(t *testing.T) {
	f := newGridFixture(t)
	// grid re-sold to another customer while sub_1 still points at it
	grid, _ := f.store.Grid("g1")
	grid.CustomerID = strPtr("cus_2")
	f.store.PutGrid(grid)

	resp, err := f.app.Test(jsonRequest("PUT", "/api/grids/g1/content",
		`{"subscriptionId":"sub_1","email":"owner@example.com","title":"t"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Grid not owned by this customer", decodeBody(t, resp)["error"])
}

func TestUpdateContentValidation(t *testing.T) {
	f := newGridFixture(t)
	long := strings.Repeat("a", 501)

	resp, err := f.app.Test(jsonRequest("PUT", "/api/grids/g1/content",
		`{"subscriptionId":"sub_1","email":"owner@example.com","description":"`+long+`","image_url":"javascript:alert(1)"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Invalid request", body["error"])
	details, ok := body["details"].([]interface{})
	require.True(t, ok)
	assert.Len(t, details, 2)
}

func TestGetGrid(t *testing.T) {
	f := newGridFixture(t)

	resp, err := f.app.Test(jsonRequest("GET", "/api/grids/g1", ""), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "g1", body["id"])
	assert.Equal(t, "active", body["status"])
	assert.NotContains(t, body, "customer_id")
	assert.NotContains(t, body, "subscription_id")

	resp, err = f.app.Test(jsonRequest("GET", "/api/grids/missing", ""), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/GridFox/app/models"
	"github.com/ManuelReschke/GridFox/app/repository"
	"github.com/ManuelReschke/GridFox/internal/pkg/mail"
	"github.com/gofiber/fiber/v2/log"
)

// Reconciler applies verified Stripe events to grids, users and
// subscriptions. Every step is an id-keyed upsert or overwrite, so
// redelivered events converge on the same rows.
type Reconciler struct {
	gateway     Gateway
	grids       repository.GridRepository
	users       repository.UserRepository
	subs        repository.SubscriptionRepository
	notifier    Notifier
	gridColumns int
	now         func() time.Time
}

// NewReconciler builds a reconciler. notifier may be nil to skip emails.
func NewReconciler(gateway Gateway, repos *repository.Repositories, notifier Notifier, gridColumns int) *Reconciler {
	return &Reconciler{
		gateway:     gateway,
		grids:       repos.Grid,
		users:       repos.User,
		subs:        repos.Subscription,
		notifier:    notifier,
		gridColumns: gridColumns,
		now:         time.Now,
	}
}

// Handle dispatches on the event variant and never returns an error.
func (r *Reconciler) Handle(ctx context.Context, ev Event) Result {
	switch e := ev.(type) {
	case CheckoutCompleted:
		return r.checkoutCompleted(ctx, e)
	case SubscriptionUpdated:
		return r.subscriptionUpdated(ctx, e)
	case SubscriptionDeleted:
		return r.subscriptionDeleted(ctx, e)
	case UnhandledEvent:
		return ok(fmt.Sprintf("Ignored event type %s", e.Type))
	default:
		return failed(fmt.Errorf("unsupported event %T", ev))
	}
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, e CheckoutCompleted) Result {
	if e.GridID == "" || e.CustomerID == "" || e.SubscriptionID == "" {
		return failed(fmt.Errorf("%w: gridId, customer and subscription are required", ErrMissingMetadata))
	}

	sub, err := r.gateway.GetSubscription(ctx, e.SubscriptionID)
	if err != nil {
		return failed(fmt.Errorf("retrieve subscription %s: %w", e.SubscriptionID, err))
	}
	customer, err := r.gateway.GetCustomer(ctx, e.CustomerID)
	if err != nil {
		return failed(fmt.Errorf("retrieve customer %s: %w", e.CustomerID, err))
	}
	if strings.TrimSpace(customer.Email) == "" {
		return failed(ErrCustomerEmailMissing)
	}

	grid, err := r.grids.GetByID(ctx, e.GridID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return failed(fmt.Errorf("%w: %s", ErrGridNotFound, e.GridID))
		}
		return failed(fmt.Errorf("load grid %s: %w", e.GridID, err))
	}

	if _, err := r.users.FindOrCreateByCustomerID(ctx, customer.ID, customer.Email, models.SubscriptionStatusActive); err != nil {
		return failed(fmt.Errorf("find or create user: %w", err))
	}

	gridID := grid.ID
	if err := r.subs.Upsert(ctx, &models.Subscription{
		ID:               sub.ID,
		CustomerID:       customer.ID,
		GridID:           &gridID,
		Status:           localSubscriptionStatus(sub.Status),
		CurrentPeriodEnd: &sub.CurrentPeriodEnd,
	}); err != nil {
		return failed(fmt.Errorf("upsert subscription: %w", err))
	}

	if grid.IsActive() && grid.HeldByOther(sub.ID, "") {
		log.Warnf("[Billing] checkout for subscription %s ignored, grid %s is leased under %s", sub.ID, grid.ID, *grid.SubscriptionID)
		return ok(MessageSubscriptionUnlinked)
	}

	if err := grid.Activate(sub.ID, r.now(), sub.CurrentPeriodEnd); err != nil {
		return failed(fmt.Errorf("activate grid %s: %w", grid.ID, err))
	}
	grid.CustomerID = &customer.ID
	if err := r.grids.UpdateBilling(ctx, grid); err != nil {
		return failed(fmt.Errorf("update grid %s: %w", grid.ID, err))
	}

	r.sendConfirmation(ctx, mail.PurchaseConfirmation{
		To:             customer.Email,
		GridID:         grid.ID,
		SubscriptionID: sub.ID,
		UnitAmount:     sub.UnitAmount,
		Currency:       sub.Currency,
		RenewalDate:    sub.CurrentPeriodEnd,
		Location:       GridLocation(grid.ID, r.gridColumns),
	})

	log.Infof("[Billing] grid %s activated by subscription %s", grid.ID, sub.ID)
	return ok(fmt.Sprintf("Grid %s activated", grid.ID))
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, e SubscriptionUpdated) Result {
	if e.SubscriptionID == "" {
		return failed(fmt.Errorf("%w: subscription id is required", ErrMissingMetadata))
	}

	sub, err := r.gateway.GetSubscription(ctx, e.SubscriptionID)
	if err != nil {
		return failed(fmt.Errorf("retrieve subscription %s: %w", e.SubscriptionID, err))
	}
	customer, err := r.gateway.GetCustomer(ctx, sub.CustomerID)
	if err != nil {
		return failed(fmt.Errorf("retrieve customer %s: %w", sub.CustomerID, err))
	}
	email := strings.TrimSpace(customer.Email)
	if email == "" {
		email = placeholderEmail(customer.ID)
	}

	status := localSubscriptionStatus(sub.Status)
	if _, err := r.users.FindOrCreateByCustomerID(ctx, customer.ID, email, status); err != nil {
		return failed(fmt.Errorf("find or create user: %w", err))
	}

	grid, err := r.findGrid(ctx, sub.GridID(), sub.ID)
	if err != nil {
		return failed(err)
	}

	record := &models.Subscription{
		ID:               sub.ID,
		CustomerID:       customer.ID,
		Status:           status,
		CurrentPeriodEnd: &sub.CurrentPeriodEnd,
	}
	if grid != nil {
		gridID := grid.ID
		record.GridID = &gridID
	}
	if err := r.subs.Upsert(ctx, record); err != nil {
		return failed(fmt.Errorf("upsert subscription: %w", err))
	}

	if grid == nil {
		return ok("Subscription updated without grid")
	}
	if grid.HeldByOther(sub.ID, customer.ID) {
		log.Infof("[Billing] subscription %s no longer holds grid %s", sub.ID, grid.ID)
		return ok(MessageSubscriptionUnlinked)
	}

	if status == models.SubscriptionStatusActive {
		start := sub.CurrentPeriodStart
		if grid.StartDate != nil && !grid.StartDate.After(sub.CurrentPeriodEnd) {
			start = *grid.StartDate
		}
		if err := grid.Activate(sub.ID, start, sub.CurrentPeriodEnd); err != nil {
			return failed(fmt.Errorf("activate grid %s: %w", grid.ID, err))
		}
	} else {
		grid.Deactivate(sub.CurrentPeriodEnd)
	}
	grid.CustomerID = &customer.ID
	if err := r.grids.UpdateBilling(ctx, grid); err != nil {
		return failed(fmt.Errorf("update grid %s: %w", grid.ID, err))
	}

	log.Infof("[Billing] subscription %s is %s, grid %s is %s", sub.ID, sub.Status, grid.ID, grid.Status)
	return ok(fmt.Sprintf("Subscription updated for grid %s", grid.ID))
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, e SubscriptionDeleted) Result {
	if e.SubscriptionID == "" {
		return failed(fmt.Errorf("%w: subscription id is required", ErrMissingMetadata))
	}

	grid, err := r.findGrid(ctx, e.GridID, e.SubscriptionID)
	if err != nil {
		return failed(err)
	}
	if grid == nil {
		return ok("No grid found for deleted subscription")
	}

	heldByOther := grid.HeldByOther(e.SubscriptionID, e.CustomerID)
	if !heldByOther {
		grid.Deactivate(r.now())
		if err := r.grids.UpdateBilling(ctx, grid); err != nil {
			return failed(fmt.Errorf("update grid %s: %w", grid.ID, err))
		}
	}

	customerID := e.CustomerID
	if customerID == "" && !heldByOther && grid.CustomerID != nil {
		customerID = *grid.CustomerID
	}
	gridID := grid.ID
	if err := r.subs.Upsert(ctx, &models.Subscription{
		ID:         e.SubscriptionID,
		CustomerID: customerID,
		GridID:     &gridID,
		Status:     models.SubscriptionStatusCanceled,
	}); err != nil {
		return failed(fmt.Errorf("upsert subscription: %w", err))
	}

	if heldByOther {
		log.Infof("[Billing] subscription %s canceled, grid %s already held elsewhere", e.SubscriptionID, grid.ID)
		return ok(MessageSubscriptionUnlinked)
	}

	log.Infof("[Billing] subscription %s canceled, grid %s deactivated", e.SubscriptionID, grid.ID)
	return ok(fmt.Sprintf("Subscription canceled for grid %s", grid.ID))
}

// findGrid prefers the metadata grid id and falls back to the grid leased
// under subscriptionID. It returns nil without error when neither matches.
func (r *Reconciler) findGrid(ctx context.Context, gridID, subscriptionID string) (*models.Grid, error) {
	if gridID != "" {
		grid, err := r.grids.GetByID(ctx, gridID)
		if err == nil {
			return grid, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load grid %s: %w", gridID, err)
		}
	}
	grid, err := r.grids.GetBySubscriptionID(ctx, subscriptionID)
	if err == nil {
		return grid, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("load grid by subscription %s: %w", subscriptionID, err)
}

// sendConfirmation never fails the event; delivery retries belong to the
// notifier.
func (r *Reconciler) sendConfirmation(ctx context.Context, msg mail.PurchaseConfirmation) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.SendPurchaseConfirmation(ctx, msg); err != nil {
		log.Warnf("[Billing] purchase confirmation for grid %s not sent: %v", msg.GridID, err)
	}
}

func localSubscriptionStatus(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "active":
		return models.SubscriptionStatusActive
	case "past_due", "unpaid":
		return models.SubscriptionStatusPastDue
	case "canceled", "incomplete_expired":
		return models.SubscriptionStatusCanceled
	default:
		return models.SubscriptionStatusInactive
	}
}

func placeholderEmail(customerID string) string {
	return fmt.Sprintf("unknown+%s@placeholder.invalid", customerID)
}

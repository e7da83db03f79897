package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/GridFox/app/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// GridRepository defines the interface for grid-related database operations
type GridRepository interface {
	Create(ctx context.Context, grid *models.Grid) error
	GetByID(ctx context.Context, id string) (*models.Grid, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Grid, error)
	// Reserve writes the pending-checkout columns of grid and clears any
	// previous lease's subscription_id.
	Reserve(ctx context.Context, grid *models.Grid) error
	// UpdateBilling writes status, subscription, customer and lease dates.
	UpdateBilling(ctx context.Context, grid *models.Grid) error
	// UpdateContentForCustomer writes content only when the grid is owned by
	// customerID and returns the number of affected rows.
	UpdateContentForCustomer(ctx context.Context, id, customerID string, content models.GridContent) (int64, error)
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	// FindOrCreateByCustomerID returns the user for customerID, creating it
	// with email when missing. An existing user only gets its subscription
	// status refreshed.
	FindOrCreateByCustomerID(ctx context.Context, customerID, email, status string) (*models.User, error)
}

// SubscriptionRepository defines the interface for subscription-related database operations
type SubscriptionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	// Upsert creates or updates by Stripe subscription id. A nil GridID keeps
	// the stored grid link.
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// WebhookEventRepository defines the interface for the webhook event log
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Repositories holds all repository instances
type Repositories struct {
	Grid         GridRepository
	User         UserRepository
	Subscription SubscriptionRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates GORM backed repositories sharing db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Grid:         NewGridRepository(db),
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

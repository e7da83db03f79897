package billing

import (
	"context"

	"github.com/ManuelReschke/GridFox/internal/pkg/mail"
)

// Gateway is the payment provider surface used by checkout and
// reconciliation. Implementations must not cache provider state.
type Gateway interface {
	// FindCustomerByEmail returns ErrProviderNotFound when no customer uses email.
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, email string) (*Customer, error)
	// CreatePrice returns the provider price id.
	CreatePrice(ctx context.Context, in PriceInput) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	// ConstructEvent verifies signature against the raw payload before decoding it.
	ConstructEvent(payload []byte, signature string) (Event, error)
}

// Notifier delivers purchase confirmations.
type Notifier interface {
	SendPurchaseConfirmation(ctx context.Context, msg mail.PurchaseConfirmation) error
}

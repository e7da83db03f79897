package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig configures a StripeGateway. Backends is optional and only
// set by tests that point the client at a local server.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Backends      *stripe.Backends
}

// StripeGateway implements Gateway on an injected Stripe client, never the
// package-level stripe.Key.
type StripeGateway struct {
	client        *client.API
	webhookSecret string
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, cfg.Backends)
	return &StripeGateway{client: sc, webhookSecret: cfg.WebhookSecret}
}

func (g *StripeGateway) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := g.client.Customers.List(params)
	if it.Next() {
		c := it.Customer()
		return &Customer{ID: c.ID, Email: c.Email}, nil
	}
	if err := it.Err(); err != nil {
		return nil, mapStripeError(err)
	}
	return nil, ErrProviderNotFound
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	c, err := g.client.Customers.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Customer{ID: c.ID, Email: c.Email}, nil
}

func (g *StripeGateway) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := g.client.Customers.Get(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Customer{ID: c.ID, Email: c.Email}, nil
}

func (g *StripeGateway) CreatePrice(ctx context.Context, in PriceInput) (string, error) {
	params := &stripe.PriceParams{
		Currency:   stripe.String(in.Currency),
		UnitAmount: stripe.Int64(in.UnitAmount),
		Recurring: &stripe.PriceRecurringParams{
			Interval:      stripe.String(in.Interval),
			IntervalCount: stripe.Int64(in.IntervalCount),
		},
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(in.ProductName),
		},
	}
	params.Context = ctx
	p, err := g.client.Prices.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return p.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(in.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(in.Quantity),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: in.Metadata,
		},
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := g.client.Subscriptions.Get(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return subscriptionFromStripe(s), nil
}

// ConstructEvent checks the Stripe-Signature header and decodes the event.
// The payload is decoded locally so events sent with a newer API version
// than the library pins are still accepted.
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (Event, error) {
	if err := webhook.ValidatePayload(payload, signature, g.webhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode stripe event: %w", err)
	}
	return ParseEvent(ev)
}

func subscriptionFromStripe(s *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                 s.ID,
		Status:             string(s.Status),
		CurrentPeriodStart: time.Unix(s.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		Metadata:           s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		out.UnitAmount = price.UnitAmount
		out.Currency = string(price.Currency)
		if price.Recurring != nil {
			out.Interval = string(price.Recurring.Interval)
		}
	}
	return out
}

// mapStripeError converts stripe-go errors into billing errors so callers
// never match on provider types.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrProviderNotFound, stripeErr.Msg)
		}
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s", ErrProviderUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("stripe: %s", stripeErr.Msg)
	}
	return fmt.Errorf("stripe request failed: %w", err)
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/GridFox/app/repository"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
)

// CheckoutConfig holds pricing and redirect settings.
type CheckoutConfig struct {
	BasePriceCents   int64
	Currency         string
	ProductName      string
	DefaultReturnURL string
}

// CheckoutRequest is a buyer's purchase intent for one grid.
type CheckoutRequest struct {
	GridID       string
	Email        string
	BillingCycle string
	ReturnURL    string
}

// CheckoutResult is returned to the buyer for the redirect.
type CheckoutResult struct {
	SessionID  string
	SessionURL string
	Quote      Quote
}

// CheckoutService creates Stripe checkout sessions for grid purchases.
type CheckoutService struct {
	gateway  Gateway
	grids    repository.GridRepository
	cfg      CheckoutConfig
	validate *validator.Validate
	now      func() time.Time
}

func NewCheckoutService(gateway Gateway, grids repository.GridRepository, cfg CheckoutConfig) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Grid space"
	}
	return &CheckoutService{
		gateway:  gateway,
		grids:    grids,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}
}

// CreateCheckoutSession prices the cycle, resolves the customer, opens a
// subscription checkout and reserves the grid as pending.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	gridID := strings.TrimSpace(req.GridID)
	email := strings.TrimSpace(req.Email)
	if gridID == "" {
		return nil, ErrMissingGridID
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	cycle, err := ParseBillingCycle(req.BillingCycle)
	if err != nil {
		return nil, err
	}
	quote, err := QuoteFor(cycle, s.cfg.BasePriceCents)
	if err != nil {
		return nil, err
	}

	grid, err := s.grids.GetByID(ctx, gridID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGridNotFound
		}
		return nil, fmt.Errorf("load grid %s: %w", gridID, err)
	}
	if grid.IsActive() {
		return nil, ErrGridUnavailable
	}

	customer, err := s.resolveCustomer(ctx, email)
	if err != nil {
		return nil, err
	}

	priceID, err := s.gateway.CreatePrice(ctx, PriceInput{
		Currency:      s.cfg.Currency,
		UnitAmount:    quote.UnitAmount,
		Interval:      quote.Interval,
		IntervalCount: quote.IntervalCount,
		ProductName:   fmt.Sprintf("%s %s (%s)", s.cfg.ProductName, gridID, cycle),
	})
	if err != nil {
		return nil, fmt.Errorf("create price: %w", err)
	}

	returnURL := strings.TrimSpace(req.ReturnURL)
	if returnURL == "" {
		returnURL = s.cfg.DefaultReturnURL
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID: customer.ID,
		PriceID:    priceID,
		Quantity:   quote.Quantity,
		SuccessURL: withQuery(returnURL, "session_id={CHECKOUT_SESSION_ID}&success=true"),
		CancelURL:  withQuery(returnURL, "canceled=true"),
		Metadata:   map[string]string{MetadataGridID: gridID},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	grid.Reserve(customer.ID, s.now())
	if err := s.grids.Reserve(ctx, grid); err != nil {
		return nil, fmt.Errorf("reserve grid %s: %w", gridID, err)
	}

	log.Infof("[Checkout] session %s created for grid %s (%s, %d x %d %s)",
		session.ID, gridID, cycle, quote.Quantity, quote.UnitAmount, s.cfg.Currency)
	return &CheckoutResult{SessionID: session.ID, SessionURL: session.URL, Quote: quote}, nil
}

func (s *CheckoutService) resolveCustomer(ctx context.Context, email string) (*Customer, error) {
	customer, err := s.gateway.FindCustomerByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, ErrProviderNotFound) {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	customer, err = s.gateway.CreateCustomer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return customer, nil
}

// withQuery appends a raw query without escaping, so Stripe's
// {CHECKOUT_SESSION_ID} template survives.
func withQuery(base, query string) string {
	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return base + sep + query
}

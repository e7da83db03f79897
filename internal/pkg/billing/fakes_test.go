package billing

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuelReschke/GridFox/internal/pkg/mail"
)

type fakeGateway struct {
	mu sync.Mutex

	customersByEmail map[string]*Customer
	customers        map[string]*Customer
	subscriptions    map[string]*Subscription

	createdCustomers []string
	prices           []PriceInput
	sessions         []CheckoutSessionInput
	getSubCalls      int

	failPrice   error
	failSession error
	failGetSub  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		customersByEmail: map[string]*Customer{},
		customers:        map[string]*Customer{},
		subscriptions:    map[string]*Subscription{},
	}
}

func (f *fakeGateway) addCustomer(c *Customer) {
	f.customers[c.ID] = c
	if c.Email != "" {
		f.customersByEmail[c.Email] = c
	}
}

func (f *fakeGateway) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.customersByEmail[email]; ok {
		return c, nil
	}
	return nil, ErrProviderNotFound
}

func (f *fakeGateway) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &Customer{ID: "cus_new_" + email, Email: email}
	f.createdCustomers = append(f.createdCustomers, email)
	f.customers[c.ID] = c
	f.customersByEmail[email] = c
	return c, nil
}

func (f *fakeGateway) CreatePrice(ctx context.Context, in PriceInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPrice != nil {
		return "", f.failPrice
	}
	f.prices = append(f.prices, in)
	return "price_1", nil
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSession != nil {
		return nil, f.failSession
	}
	f.sessions = append(f.sessions, in)
	return &CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
}

func (f *fakeGateway) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getSubCalls++
	if f.failGetSub != nil {
		return nil, f.failGetSub
	}
	s, ok := f.subscriptions[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeGateway) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeGateway) ConstructEvent(payload []byte, signature string) (Event, error) {
	return nil, errors.New("not used")
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []mail.PurchaseConfirmation
	err  error
}

func (n *recordingNotifier) SendPurchaseConfirmation(ctx context.Context, msg mail.PurchaseConfirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

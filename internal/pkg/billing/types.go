package billing

import "time"

// MetadataGridID is the metadata key linking Stripe sessions and
// subscriptions to a grid.
const MetadataGridID = "gridId"

// Customer is the provider-agnostic view of a billing customer.
type Customer struct {
	ID    string
	Email string
}

// Subscription is the authoritative subscription state fetched from the
// payment provider during reconciliation.
type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Metadata           map[string]string
	UnitAmount         int64
	Currency           string
	Interval           string
}

// GridID returns the grid linked through subscription metadata, if any.
func (s *Subscription) GridID() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	return s.Metadata[MetadataGridID]
}

// PriceInput describes a recurring price to create at the provider.
type PriceInput struct {
	Currency      string
	UnitAmount    int64
	Interval      string
	IntervalCount int64
	ProductName   string
}

// CheckoutSessionInput describes a hosted subscription checkout.
type CheckoutSessionInput struct {
	CustomerID string
	PriceID    string
	Quantity   int64
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the created provider session.
type CheckoutSession struct {
	ID  string
	URL string
}

// Result is the structured outcome of a webhook handler. Handlers never
// return errors; failures are reported through Success and Error.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MessageSubscriptionUnlinked reports an event for a subscription whose grid
// has since been leased or reserved by someone else. The subscription row is
// still recorded; the grid is left alone.
const MessageSubscriptionUnlinked = "Subscription no longer linked to grid"

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

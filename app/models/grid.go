package models

import (
	"errors"
	"time"
)

const (
	GridStatusPending  = "pending"
	GridStatusActive   = "active"
	GridStatusInactive = "inactive"
)

// Placeholder content written when a grid is reserved for checkout.
const (
	GridPlaceholderTitle       = "Reserved grid space"
	GridPlaceholderDescription = "Awaiting payment confirmation"
)

var (
	ErrGridMissingSubscription = errors.New("active grid requires a subscription id")
	ErrGridInvalidPeriod       = errors.New("grid end date is before its start date")
)

// Grid is a purchasable advertising tile. The owning identity is the Stripe
// customer id stored in CustomerID.
type Grid struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Status         string     `gorm:"type:varchar(16);not null;default:'inactive';index" json:"status"`
	Title          *string    `gorm:"type:varchar(100)" json:"title"`
	Description    *string    `gorm:"type:varchar(500)" json:"description"`
	ImageURL       *string    `gorm:"column:image_url;type:varchar(2048)" json:"image_url"`
	ExternalURL    *string    `gorm:"column:external_url;type:varchar(2048)" json:"external_url"`
	Content        *string    `gorm:"type:text" json:"content"`
	SubscriptionID *string    `gorm:"type:varchar(191);index" json:"subscription_id"`
	CustomerID     *string    `gorm:"type:varchar(191);index" json:"customer_id"`
	StartDate      *time.Time `gorm:"type:timestamp;default:null" json:"start_date"`
	EndDate        *time.Time `gorm:"type:timestamp;default:null" json:"end_date"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GridContent holds the owner-editable fields. Nil fields are left untouched.
type GridContent struct {
	Title       *string
	Description *string
	ImageURL    *string
	ExternalURL *string
	Content     *string
}

// IsEmpty reports whether no field is set.
func (c GridContent) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.ImageURL == nil && c.ExternalURL == nil && c.Content == nil
}

// Columns returns the column/value pairs to write for the set fields.
func (c GridContent) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 5)
	if c.Title != nil {
		cols["title"] = *c.Title
	}
	if c.Description != nil {
		cols["description"] = *c.Description
	}
	if c.ImageURL != nil {
		cols["image_url"] = *c.ImageURL
	}
	if c.ExternalURL != nil {
		cols["external_url"] = *c.ExternalURL
	}
	if c.Content != nil {
		cols["content"] = *c.Content
	}
	return cols
}

// Apply copies the set fields onto the grid.
func (g *Grid) Apply(c GridContent) {
	if c.Title != nil {
		g.Title = stringPtr(*c.Title)
	}
	if c.Description != nil {
		g.Description = stringPtr(*c.Description)
	}
	if c.ImageURL != nil {
		g.ImageURL = stringPtr(*c.ImageURL)
	}
	if c.ExternalURL != nil {
		g.ExternalURL = stringPtr(*c.ExternalURL)
	}
	if c.Content != nil {
		g.Content = stringPtr(*c.Content)
	}
}

// IsActive reports whether the grid is currently leased.
func (g *Grid) IsActive() bool {
	return g.Status == GridStatusActive
}

// OwnedBy reports whether the grid belongs to the given Stripe customer.
func (g *Grid) OwnedBy(customerID string) bool {
	return g.CustomerID != nil && customerID != "" && *g.CustomerID == customerID
}

// HeldByOther reports whether the grid is leased under a subscription other
// than subscriptionID, or, with no lease recorded, reserved by a customer
// other than customerID. An empty customerID only checks the lease.
func (g *Grid) HeldByOther(subscriptionID, customerID string) bool {
	if g.SubscriptionID != nil && *g.SubscriptionID != "" {
		return *g.SubscriptionID != subscriptionID
	}
	return customerID != "" && g.CustomerID != nil && *g.CustomerID != "" && *g.CustomerID != customerID
}

// Reserve puts the grid into pending state for a checkout started by
// customerID. The one month lease is provisional until the checkout webhook
// arrives.
func (g *Grid) Reserve(customerID string, now time.Time) {
	end := now.AddDate(0, 1, 0)
	g.Status = GridStatusPending
	g.CustomerID = stringPtr(customerID)
	g.SubscriptionID = nil
	g.Title = stringPtr(GridPlaceholderTitle)
	g.Description = stringPtr(GridPlaceholderDescription)
	g.ImageURL = nil
	g.ExternalURL = nil
	g.Content = nil
	g.StartDate = timePtr(now)
	g.EndDate = timePtr(end)
}

// Activate marks the grid as leased under subscriptionID for [start, end].
func (g *Grid) Activate(subscriptionID string, start, end time.Time) error {
	if subscriptionID == "" {
		return ErrGridMissingSubscription
	}
	if end.Before(start) {
		return ErrGridInvalidPeriod
	}
	g.Status = GridStatusActive
	g.SubscriptionID = stringPtr(subscriptionID)
	g.StartDate = timePtr(start)
	g.EndDate = timePtr(end)
	return nil
}

// Deactivate ends the lease at end.
func (g *Grid) Deactivate(end time.Time) {
	g.Status = GridStatusInactive
	g.EndDate = timePtr(end)
}

func stringPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
)

// Subscription mirrors a Stripe subscription. ID is the Stripe subscription
// id, so replayed webhooks upsert the same row.
type Subscription struct {
	ID               string     `gorm:"primaryKey;type:varchar(191)" json:"id"`
	CustomerID       string     `gorm:"type:varchar(191);not null;index" json:"customer_id"`
	GridID           *string    `gorm:"type:varchar(64);index" json:"grid_id"`
	Status           string     `gorm:"type:varchar(32);not null;default:'inactive';index" json:"status"`
	CurrentPeriodEnd *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription currently entitles its owner.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// IsForGrid reports whether the subscription is linked to gridID.
func (s *Subscription) IsForGrid(gridID string) bool {
	return s.GridID != nil && gridID != "" && *s.GridID == gridID
}

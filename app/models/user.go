package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the local record of a paying Stripe customer.
type User struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email              string    `gorm:"type:varchar(200);not null;index" json:"email"`
	StripeCustomerID   string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_customer_id"`
	SubscriptionStatus string    `gorm:"type:varchar(32);not null;default:'inactive'" json:"subscription_status"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewUser builds a user with a fresh id.
func NewUser(stripeCustomerID, email, subscriptionStatus string) *User {
	return &User{
		ID:                 uuid.NewString(),
		Email:              strings.TrimSpace(email),
		StripeCustomerID:   strings.TrimSpace(stripeCustomerID),
		SubscriptionStatus: subscriptionStatus,
	}
}

// HasEmail reports whether email matches the stored address exactly.
func (u *User) HasEmail(email string) bool {
	return u.Email != "" && u.Email == email
}

package billing

import "errors"

var (
	ErrGridNotFound             = errors.New("grid not found")
	ErrGridUnavailable          = errors.New("grid already has an active subscription")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrSubscriptionInactive     = errors.New("subscription is not active")
	ErrSubscriptionGridMismatch = errors.New("subscription is not for this grid")
	ErrEmailMismatch            = errors.New("email does not match subscription owner")
	ErrNotOwner                 = errors.New("grid not owned by this customer")
	ErrInvalidBillingCycle      = errors.New("invalid billing cycle")
	ErrInvalidEmail             = errors.New("invalid email address")
	ErrMissingGridID            = errors.New("grid id is required")
	ErrInvalidSignature         = errors.New("invalid webhook signature")
	ErrMissingMetadata          = errors.New("missing required session data")
	ErrCustomerEmailMissing     = errors.New("customer has no email address")
	ErrProviderUnavailable      = errors.New("payment provider unavailable")
	ErrProviderNotFound         = errors.New("payment provider resource not found")
)

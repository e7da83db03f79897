package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/GridFox/app/models"
	"github.com/ManuelReschke/GridFox/app/repository"
)

// AccessService is the single ownership predicate guarding grid edits.
type AccessService struct {
	subs  repository.SubscriptionRepository
	users repository.UserRepository
}

func NewAccessService(subs repository.SubscriptionRepository, users repository.UserRepository) *AccessService {
	return &AccessService{subs: subs, users: users}
}

// VerifyAccess checks, in order, that the subscription exists, is active,
// is linked to gridID and belongs to a user whose email equals email
// exactly. The first failing check decides the error.
func (s *AccessService) VerifyAccess(ctx context.Context, subscriptionID, email, gridID string) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	if !sub.IsActive() {
		return nil, ErrSubscriptionInactive
	}
	if !sub.IsForGrid(gridID) {
		return nil, ErrSubscriptionGridMismatch
	}

	user, err := s.users.GetByCustomerID(ctx, sub.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEmailMismatch
		}
		return nil, fmt.Errorf("load subscription owner: %w", err)
	}
	if !user.HasEmail(email) {
		return nil, ErrEmailMismatch
	}
	return sub, nil
}

// IsForbidden reports whether err is an ownership failure rather than an
// infrastructure error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrSubscriptionInactive) ||
		errors.Is(err, ErrSubscriptionGridMismatch) ||
		errors.Is(err, ErrEmailMismatch) ||
		errors.Is(err, ErrNotOwner)
}

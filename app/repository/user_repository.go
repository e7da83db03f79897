package repository

import (
	"context"

	"github.com/ManuelReschke/GridFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByCustomerID retrieves a user by their Stripe customer id
func (r *userRepository) GetByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindOrCreateByCustomerID(ctx context.Context, customerID, email, status string) (*models.User, error) {
	user := models.NewUser(customerID, email, status)
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subscription_status", "updated_at"}),
	}).Create(user).Error; err != nil {
		return nil, err
	}

	// The insert may have been a no-op; reload the stored row.
	var stored models.User
	if err := db.Where("stripe_customer_id = ?", customerID).First(&stored).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

package repository

import (
	"context"

	"github.com/ManuelReschke/GridFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	// absent values never overwrite what an earlier event stored
	columns := []string{"status", "updated_at"}
	if sub.CustomerID != "" {
		columns = append(columns, "customer_id")
	}
	if sub.CurrentPeriodEnd != nil {
		columns = append(columns, "current_period_end")
	}
	if sub.GridID != nil {
		columns = append(columns, "grid_id")
	}

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(sub).Error; err != nil {
		return err
	}

	return db.Where("id = ?", sub.ID).First(sub).Error
}

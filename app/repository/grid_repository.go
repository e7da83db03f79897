package repository

import (
	"context"

	"github.com/ManuelReschke/GridFox/app/models"
	"gorm.io/gorm"
)

// gridRepository implements the GridRepository interface
type gridRepository struct {
	db *gorm.DB
}

// NewGridRepository creates a new grid repository instance
func NewGridRepository(db *gorm.DB) GridRepository {
	return &gridRepository{db: db}
}

func (r *gridRepository) Create(ctx context.Context, grid *models.Grid) error {
	return r.db.WithContext(ctx).Create(grid).Error
}

// GetByID retrieves a grid by its ID
func (r *gridRepository) GetByID(ctx context.Context, id string) (*models.Grid, error) {
	var grid models.Grid
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&grid).Error; err != nil {
		return nil, translate(err)
	}
	return &grid, nil
}

// GetBySubscriptionID retrieves the grid leased under a Stripe subscription
func (r *gridRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Grid, error) {
	var grid models.Grid
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("updated_at DESC").
		First(&grid).Error
	if err != nil {
		return nil, translate(err)
	}
	return &grid, nil
}

func (r *gridRepository) Reserve(ctx context.Context, grid *models.Grid) error {
	tx := r.db.WithContext(ctx).Model(grid).
		Select("status", "customer_id", "subscription_id", "title", "description", "image_url", "external_url", "content", "start_date", "end_date", "updated_at").
		Updates(grid)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gridRepository) UpdateBilling(ctx context.Context, grid *models.Grid) error {
	tx := r.db.WithContext(ctx).Model(grid).
		Select("status", "subscription_id", "customer_id", "start_date", "end_date", "updated_at").
		Updates(grid)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gridRepository) UpdateContentForCustomer(ctx context.Context, id, customerID string, content models.GridContent) (int64, error) {
	cols := content.Columns()
	if len(cols) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Model(&models.Grid{}).
		Where("id = ? AND customer_id = ?", id, customerID).
		Updates(cols)
	return tx.RowsAffected, tx.Error
}

package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/GridFox/app/models"
	"github.com/ManuelReschke/GridFox/app/repository"
)

// ContentService applies owner edits to grid content behind VerifyAccess.
type ContentService struct {
	access *AccessService
	grids  repository.GridRepository
}

func NewContentService(access *AccessService, grids repository.GridRepository) *ContentService {
	return &ContentService{access: access, grids: grids}
}

// UpdateContent verifies ownership and writes content scoped to the owning
// customer in one conditional update.
func (s *ContentService) UpdateContent(ctx context.Context, gridID, subscriptionID, email string, content models.GridContent) (*models.Grid, error) {
	sub, err := s.access.VerifyAccess(ctx, subscriptionID, email, gridID)
	if err != nil {
		return nil, err
	}

	if _, err := s.grids.GetByID(ctx, gridID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGridNotFound
		}
		return nil, fmt.Errorf("load grid %s: %w", gridID, err)
	}

	if !content.IsEmpty() {
		n, err := s.grids.UpdateContentForCustomer(ctx, gridID, sub.CustomerID, content)
		if err != nil {
			return nil, fmt.Errorf("update grid %s: %w", gridID, err)
		}
		if n == 0 {
			return nil, ErrNotOwner
		}
	}

	grid, err := s.grids.GetByID(ctx, gridID)
	if err != nil {
		return nil, fmt.Errorf("reload grid %s: %w", gridID, err)
	}
	if !grid.OwnedBy(sub.CustomerID) {
		return nil, ErrNotOwner
	}
	return grid, nil
}

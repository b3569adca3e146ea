package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository"
)

type TableRegistry struct {
	log *zap.Logger
}

func (t TableRegistry) TryOccupy(ctx context.Context, repo repository.TableRepositoryInterface, restaurantID uuid.UUID, number int) (domain.Table, error) {
	return repo.TryOccupy(ctx, restaurantID, number)
}

// Release frees the table. A table that is not occupied is left as is.
func (t TableRegistry) Release(ctx context.Context, repo repository.TableRepositoryInterface, tableID uuid.UUID) error {
	released, err := repo.Release(ctx, tableID)
	if err != nil {
		return err
	}
	if !released {
		t.log.Debug("table_release_noop", zap.String("table_id", tableID.String()))
	}
	return nil
}

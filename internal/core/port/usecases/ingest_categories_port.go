package usecases_port

import (
	"context"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// IngestCategoriesPort запускает проходы по нескольким категориям
type IngestCategoriesPort interface {
	Execute(ctx context.Context, categories []domain.Category) ([]*domain.IngestionStats, error)
}

package usecases_port

import (
	"context"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// RunIngestionPort выполняет один проход загрузки по категории
type RunIngestionPort interface {
	Execute(ctx context.Context, category domain.Category) (*domain.IngestionStats, error)
}

package usecases_port

import (
	"context"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

type FindListingsPort interface {
	// Execute возвращает записи по фильтру. Если chatID не пуст и записи найдены,
	// первые из них отправляются пользователю в чат.
	Execute(ctx context.Context, filter domain.ListingFilter, chatID string) ([]domain.ListingRecord, error)
}

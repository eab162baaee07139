package port

import (
	"context"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// NotifierPort отправляет подборку объявлений пользователю в чат
type NotifierPort interface {
	SendListings(ctx context.Context, chatID string, records []domain.ListingRecord) error
}

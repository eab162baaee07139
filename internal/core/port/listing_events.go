package port

import (
	"context"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// ListingEventsPort публикует события о новых сохраненных объявлениях
type ListingEventsPort interface {
	PublishSaved(ctx context.Context, event domain.SavedListingEvent) error
}

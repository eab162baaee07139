package port

import "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

// ListingExtractorPort разбирает индексную страницу на карточки и карточки на записи
type ListingExtractorPort interface {
	// SplitFragments возвращает карточки объявлений в порядке документа
	SplitFragments(markup string) ([]domain.Fragment, error)

	// Extract превращает одну карточку в запись или отказ. Никогда не паникует.
	Extract(fragment domain.Fragment, category domain.Category) domain.ExtractionResult
}

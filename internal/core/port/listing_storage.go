package port

import (
	"context"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// ListingStoragePort описывает хранилище объявлений с идемпотентной вставкой по адресу
type ListingStoragePort interface {
	// OpenSession открывает сессию записи для одного прохода по категории
	OpenSession(ctx context.Context, category domain.Category) (ListingWriterSession, error)

	// FindListings возвращает записи, удовлетворяющие фильтру, в порядке вставки
	FindListings(ctx context.Context, filter domain.ListingFilter) ([]domain.ListingRecord, error)
}

// ListingWriterSession открывается на один проход. Каждая запись фиксируется отдельно,
// ошибка одной записи не затрагивает остальные.
type ListingWriterSession interface {
	// UpsertIgnore вставляет запись, если адреса еще нет. inserted=false означает дубликат.
	UpsertIgnore(ctx context.Context, record domain.ListingRecord) (inserted bool, err error)

	Close() error
}

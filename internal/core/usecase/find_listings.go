package usecase

import (
	"context"
	"fmt"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// FindListingsUseCase выполняет чтение по фильтру для веб-интерфейса с отправкой подборки в чат
type FindListingsUseCase struct {
	storage  port.ListingStoragePort
	notifier port.NotifierPort // nil, если чат не настроен
}

func NewFindListingsUseCase(storage port.ListingStoragePort, notifier port.NotifierPort) *FindListingsUseCase {
	return &FindListingsUseCase{
		storage:  storage,
		notifier: notifier,
	}
}

// Execute возвращает записи по фильтру. Ошибка отправки в чат не влияет на результат.
func (uc *FindListingsUseCase) Execute(ctx context.Context, filter domain.ListingFilter, chatID string) ([]domain.ListingRecord, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "FindListings",
		"category": string(filter.Category),
	})

	if !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, filter.Category)
	}

	records, err := uc.storage.FindListings(ctx, filter)
	if err != nil {
		ucLogger.Error("Failed to find listings", err, nil)
		return nil, fmt.Errorf("find listings: %w", err)
	}

	ucLogger.Debug("Listings found", port.Fields{"count": len(records)})

	if chatID == "" || len(records) == 0 || uc.notifier == nil {
		return records, nil
	}

	toSend := records
	if len(toSend) > constants.NotifyListingsLimit {
		toSend = toSend[:constants.NotifyListingsLimit]
	}
	if err := uc.notifier.SendListings(ctx, chatID, toSend); err != nil {
		ucLogger.Error("Failed to push listings to chat", err, port.Fields{"chat_id": chatID})
	} else {
		ucLogger.Info("Listings pushed to chat", port.Fields{"chat_id": chatID, "count": len(toSend)})
	}

	return records, nil
}

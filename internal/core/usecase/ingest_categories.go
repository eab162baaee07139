package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
	usecases_port "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port/usecases"
)

// IngestCategoriesUseCase запускает проходы по категориям. По умолчанию категории
// обходятся по очереди, в параллельном режиме каждая категория работает в своей
// горутине со своей сессией браузера. Пересекающиеся проходы одной категории отклоняются.
// В последовательном режиме проходы от разных вызовов Execute встают в общую очередь,
// так что одновременно открыта не больше одной сессии.
type IngestCategoriesUseCase struct {
	runIngestionUC usecases_port.RunIngestionPort
	concurrent     bool

	mu      sync.Mutex
	running map[domain.Category]bool

	slot chan struct{}
}

// NewIngestCategoriesUseCase создает новый экземпляр IngestCategoriesUseCase
func NewIngestCategoriesUseCase(runIngestionUC usecases_port.RunIngestionPort, concurrent bool) *IngestCategoriesUseCase {
	return &IngestCategoriesUseCase{
		runIngestionUC: runIngestionUC,
		concurrent:     concurrent,
		running:        make(map[domain.Category]bool),
		slot:           make(chan struct{}, 1),
	}
}

// Execute возвращает статистику по каждой категории в порядке входного списка.
// Для отклоненных или упавших проходов статистика может быть nil.
func (uc *IngestCategoriesUseCase) Execute(ctx context.Context, categories []domain.Category) ([]*domain.IngestionStats, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "IngestCategories",
		"concurrent": uc.concurrent,
	})
	ucLogger.Info("Starting ingestion for categories", port.Fields{"categories": categories})

	results := make([]*domain.IngestionStats, len(categories))
	errs := make([]error, len(categories))

	runOne := func(i int, category domain.Category) {
		catLogger := ucLogger.WithFields(port.Fields{"category": string(category)})

		if !uc.acquire(category) {
			catLogger.Warn("Ingestion for category is already running, skipping", nil)
			errs[i] = fmt.Errorf("category %s: %w", category, domain.ErrRunInProgress)
			return
		}
		defer uc.release(category)

		if !uc.concurrent {
			select {
			case uc.slot <- struct{}{}:
			case <-ctx.Done():
				errs[i] = fmt.Errorf("category %s: %w", category, ctx.Err())
				return
			}
			defer func() { <-uc.slot }()
		}

		stats, err := uc.runIngestionUC.Execute(contextkeys.ContextWithLogger(ctx, catLogger), category)
		results[i] = stats
		if err != nil {
			catLogger.Error("Ingestion run failed", err, nil)
			errs[i] = fmt.Errorf("category %s: %w", category, err)
		}
	}

	if uc.concurrent {
		var wg sync.WaitGroup
		for i, category := range categories {
			wg.Add(1)
			go func(i int, category domain.Category) {
				defer wg.Done()
				runOne(i, category)
			}(i, category)
		}
		wg.Wait()
	} else {
		for i, category := range categories {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				continue
			}
			runOne(i, category)
		}
	}

	err := errors.Join(errs...)
	ucLogger.Info("Ingestion for categories completed", port.Fields{"failed": err != nil})
	return results, err
}

func (uc *IngestCategoriesUseCase) acquire(category domain.Category) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.running[category] {
		return false
	}
	uc.running[category] = true
	return true
}

func (uc *IngestCategoriesUseCase) release(category domain.Category) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.running, category)
}

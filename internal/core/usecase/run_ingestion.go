package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// IngestionSettings задает ограничения одного прохода
type IngestionSettings struct {
	MaxPages     int           // сколько страниц выдачи обходить
	MaxFragments int           // сколько карточек обрабатывать с одной страницы
	RunTimeout   time.Duration // при 0 ограничения нет
	PageInterval time.Duration // минимальный интервал между переходами на страницы
}

// RunIngestionUseCase проводит проход: страница -> карточки -> записи -> хранилище
type RunIngestionUseCase struct {
	fetcher   port.PageFetcherPort
	extractor port.ListingExtractorPort
	storage   port.ListingStoragePort
	events    port.ListingEventsPort // может быть nil, если шина отключена
	sources   map[domain.Category]string
	settings  IngestionSettings
}

// NewRunIngestionUseCase создает новый экземпляр RunIngestionUseCase
func NewRunIngestionUseCase(
	fetcher port.PageFetcherPort,
	extractor port.ListingExtractorPort,
	storage port.ListingStoragePort,
	events port.ListingEventsPort,
	sources map[domain.Category]string,
	settings IngestionSettings,
) *RunIngestionUseCase {
	if settings.MaxPages < 1 {
		settings.MaxPages = 1
	}
	if settings.MaxFragments < 1 {
		settings.MaxFragments = constants.MaxFragmentsPerRun
	}

	return &RunIngestionUseCase{
		fetcher:   fetcher,
		extractor: extractor,
		storage:   storage,
		events:    events,
		sources:   sources,
		settings:  settings,
	}
}

// Execute выполняет проход по категории. Ошибка возвращается только если не удалось
// открыть сессию браузера или хранилища либо проход был отменен. Ошибки отдельных
// страниц, карточек и записей логируются и учитываются в статистике.
func (uc *RunIngestionUseCase) Execute(ctx context.Context, category domain.Category) (*domain.IngestionStats, error) {
	sourceURL, ok := uc.sources[category]
	if !category.Valid() || !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}

	stats := &domain.IngestionStats{
		RunID:     uuid.NewString(),
		Category:  category,
		StartedAt: time.Now(),
	}

	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "RunIngestion",
		"run_id":   stats.RunID,
		"category": string(category),
	})
	ctx = contextkeys.ContextWithLogger(ctx, ucLogger)

	if uc.settings.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.settings.RunTimeout)
		defer cancel()
	}

	ucLogger.Info("Starting ingestion run", port.Fields{"source_url": sourceURL, "max_pages": uc.settings.MaxPages})

	session, err := uc.fetcher.OpenSession(ctx)
	if err != nil {
		stats.FinishedAt = time.Now()
		ucLogger.Error("Failed to open page session, aborting run", err, nil)
		return stats, fmt.Errorf("open page session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			ucLogger.Warn("Failed to close page session", port.Fields{"error": closeErr.Error()})
		}
	}()

	var writer port.ListingWriterSession
	defer func() {
		if writer == nil {
			return
		}
		if closeErr := writer.Close(); closeErr != nil {
			ucLogger.Warn("Failed to close storage session", port.Fields{"error": closeErr.Error()})
		}
	}()

	var limiter *rate.Limiter
	if uc.settings.PageInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(uc.settings.PageInterval), 1)
	}

	runErr := func() error {
		for page := 1; page <= uc.settings.MaxPages; page++ {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			pageURL := PageURL(sourceURL, page)
			pageLogger := ucLogger.WithFields(port.Fields{"page": page, "url": pageURL})
			stats.PagesRequested++

			markup, err := session.FetchIndexPage(ctx, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				stats.PagesFailed++
				pageLogger.Error("Failed to fetch index page, skipping it", err, stageFields(err))
				continue
			}

			fragments, err := uc.extractor.SplitFragments(markup)
			if err != nil {
				stats.PagesFailed++
				pageLogger.Error("Failed to split index page into fragments, skipping it", err, nil)
				continue
			}
			stats.PagesFetched++
			stats.FragmentsSeen += len(fragments)

			if len(fragments) == 0 {
				pageLogger.Info("Index page has no listings, ending page window", nil)
				return nil
			}

			if len(fragments) > uc.settings.MaxFragments {
				pageLogger.Debug("Fragment cap reached, truncating page", port.Fields{
					"found": len(fragments),
					"cap":   uc.settings.MaxFragments,
				})
				fragments = fragments[:uc.settings.MaxFragments]
			}

			if writer == nil {
				writer, err = uc.storage.OpenSession(ctx, category)
				if err != nil {
					pageLogger.Error("Failed to open storage session, aborting run", err, nil)
					return fmt.Errorf("open storage session: %w", err)
				}
			}

			for _, fragment := range fragments {
				uc.processFragment(ctx, pageLogger, writer, category, fragment, stats)
			}
		}
		return nil
	}()

	stats.FinishedAt = time.Now()

	summary := port.Fields{
		"pages_fetched":    stats.PagesFetched,
		"pages_failed":     stats.PagesFailed,
		"fragments_seen":   stats.FragmentsSeen,
		"extracted":        stats.Extracted,
		"rejected":         stats.Rejected,
		"inserted":         stats.Inserted,
		"duplicates":       stats.Duplicates,
		"persist_failures": stats.PersistFailures,
		"duration":         stats.Duration().String(),
	}

	if runErr != nil {
		ucLogger.Error("Ingestion run stopped", runErr, summary)
		return stats, runErr
	}

	ucLogger.Info(fmt.Sprintf("Ingestion run finished, processed %d/%d", stats.FragmentsProcessed, stats.FragmentsSeen), summary)
	return stats, nil
}

// processFragment изолирует одну карточку: любой сбой учитывается в статистике и не
// выходит за ее пределы.
func (uc *RunIngestionUseCase) processFragment(
	ctx context.Context,
	logger port.LoggerPort,
	writer port.ListingWriterSession,
	category domain.Category,
	fragment domain.Fragment,
	stats *domain.IngestionStats,
) {
	stats.FragmentsProcessed++
	fragmentLogger := logger.WithFields(port.Fields{"fragment": fragment.Index})

	defer func() {
		if r := recover(); r != nil {
			stats.Rejected++
			fragmentLogger.Error("Panic while processing fragment", fmt.Errorf("%v", r), nil)
		}
	}()

	result := uc.extractor.Extract(fragment, category)
	if result.IsRejected() {
		stats.Rejected++
		fragmentLogger.Warn("Fragment rejected", port.Fields{"reason": result.Reason})
		return
	}
	stats.Extracted++

	record := *result.Record
	inserted, err := writer.UpsertIgnore(ctx, record)
	if err != nil {
		stats.PersistFailures++
		fragmentLogger.Error("Failed to persist listing, skipping it", err, port.Fields{"address": record.Address})
		return
	}

	if !inserted {
		stats.Duplicates++
		fragmentLogger.Debug("Listing already stored", port.Fields{"address": record.Address})
		return
	}

	stats.Inserted++
	fragmentLogger.Debug("Listing stored", port.Fields{"address": record.Address})

	if uc.events == nil {
		return
	}
	event := domain.SavedListingEvent{Record: record, RunID: stats.RunID, SavedAt: time.Now().UTC()}
	if err := uc.events.PublishSaved(ctx, event); err != nil {
		fragmentLogger.Warn("Failed to publish listing saved event", port.Fields{"error": err.Error(), "address": record.Address})
	}
}

// PageURL возвращает адрес страницы выдачи с номером page. Для первой страницы это исходный адрес.
func PageURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(constants.PageQueryParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func stageFields(err error) port.Fields {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return port.Fields{"stage": fetchErr.Stage}
	}
	return nil
}

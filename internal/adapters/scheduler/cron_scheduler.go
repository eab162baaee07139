package scheduler

import (
	"context"
	"fmt"
	"sync"

	logger_adapter "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/logger"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
	usecases_port "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port/usecases"

	"github.com/robfig/cron/v3"
)

// IngestScheduler запускает проходы загрузки по cron-расписанию.
// Если предыдущий запуск еще идет, очередной пропускается.
type IngestScheduler struct {
	cron       *cron.Cron
	useCase    usecases_port.IngestCategoriesPort
	categories []domain.Category
	logger     port.LoggerPort

	mu      sync.Mutex
	baseCtx context.Context
}

func NewIngestScheduler(
	spec string,
	categories []domain.Category,
	useCase usecases_port.IngestCategoriesPort,
	logger port.LoggerPort,
) (*IngestScheduler, error) {
	if useCase == nil {
		return nil, fmt.Errorf("scheduler: use case is required")
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("scheduler: at least one category is required")
	}

	schedLogger := logger.WithFields(port.Fields{"component": "IngestScheduler", "schedule": spec})
	cronLogger := logger_adapter.NewKVBridge(schedLogger).Quiet()

	s := &IngestScheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		useCase:    useCase,
		categories: categories,
		logger:     schedLogger,
		baseCtx:    context.Background(),
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *IngestScheduler) runOnce() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	ctx, traceID := contextkeys.EnsureTraceID(ctx)
	runLogger := s.logger.WithFields(port.Fields{"trace_id": traceID})
	ctx = contextkeys.ContextWithLogger(ctx, runLogger)

	runLogger.Info("Scheduled ingestion started", port.Fields{"categories": s.categories})
	if _, err := s.useCase.Execute(ctx, s.categories); err != nil {
		runLogger.Error("Scheduled ingestion finished with errors", err, nil)
		return
	}
	runLogger.Info("Scheduled ingestion finished", nil)
}

// Start запускает расписание и блокируется до отмены контекста
func (s *IngestScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started", nil)

	<-ctx.Done()
	return nil
}

// Close останавливает расписание и ждет завершения текущего запуска
func (s *IngestScheduler) Close() error {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped", nil)
	return nil
}

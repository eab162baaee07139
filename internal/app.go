package internal

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/avitoparser"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/badgerstore"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/browserfetcher"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/challenge"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/httpfetcher"
	token_adapter "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/jwt"
	logger_adapter "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/logger"
	postgres_adapter "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/postgres"
	rabbitmq_adapter "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/rabbitmq"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/rest"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/scheduler"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/telegram"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/configs"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contracts"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
	usecases_port "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port/usecases"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/usecase"
	fluentlogger "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/fluentlogger"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/postgres"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/rabbitmq/rabbitmq_common"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/rabbitmq/rabbitmq_consumer"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 15 * time.Second

type namedListener struct {
	name     string
	listener port.EventListenerPort
}

// App – структура приложения
type App struct {
	config     *configs.AppConfig
	baseLogger port.LoggerPort
	logger     port.LoggerPort

	appCtx    context.Context
	cancelApp context.CancelFunc

	fluentClient  *fluent.Fluent
	dbPool        *pgxpool.Pool
	badgerStore   *badgerstore.BadgerListingStorageAdapter
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher

	ingestCategoriesUC usecases_port.IngestCategoriesPort
	ingestHandler      *rest.IngestHandler
	server             *rest.Server

	// Входящие порты (слушатели событий)
	listeners []namedListener
}

// NewApp создает новый экземпляр приложения.
// Здесь все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	appCtx, cancelApp := context.WithCancel(context.Background())
	a := &App{config: appConfig, appCtx: appCtx, cancelApp: cancelApp}

	if err := a.initLogger(); err != nil {
		cancelApp()
		return nil, err
	}

	if err := a.init(); err != nil {
		a.logger.Error("Application initialization failed", err, nil)
		a.closeResources()
		cancelApp()
		return nil, err
	}
	return a, nil
}

// --- ЛОГГЕРЫ ---
func (a *App) initLogger() error {
	cfg := a.config
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    logger_adapter.ParseLogLevel(cfg.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	if cfg.FluentBit.Enabled {
		fluentClient, err := fluentlogger.NewClient(fluentlogger.Config{
			Host:      cfg.FluentBit.Host,
			Port:      cfg.FluentBit.Port,
			TagPrefix: cfg.AppName,
			Async:     true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, "", logger_adapter.ParseLogLevel(cfg.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return err
		}
		a.fluentClient = fluentClient
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiLoggerAdapter(activeLoggers...)
	if err != nil {
		return fmt.Errorf("failed to create multi-logger: %w", err)
	}

	a.baseLogger = multiLogger.WithFields(port.Fields{"service_name": cfg.AppName})
	a.logger = a.baseLogger.WithFields(port.Fields{"component": "app"})
	a.logger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": cfg.FluentBit.Enabled,
	})
	return nil
}

func (a *App) init() error {
	cfg := a.config
	baseLogger := a.baseLogger

	// 1. Хранилище
	storage, err := a.initStorage(baseLogger)
	if err != nil {
		return err
	}

	// 2. Ручное подтверждение капчи
	gate := challenge.NewGate(cfg.Challenge.Timeout)
	if cfg.Challenge.ConsoleEnabled {
		a.listeners = append(a.listeners, namedListener{"Console Challenge Acknowledger", challenge.NewConsoleAcknowledger(gate, os.Stdin, baseLogger)})
	}
	if cfg.Challenge.SignalEnabled {
		a.listeners = append(a.listeners, namedListener{"Signal Challenge Acknowledger", challenge.NewSignalAcknowledger(gate, baseLogger)})
	}

	// 3. Загрузчик страниц и разбор карточек
	fetcher, err := a.initFetcher(gate)
	if err != nil {
		return err
	}
	extractor, err := avitoparser.NewAvitoExtractorAdapter(cfg.Avito.Origin)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	// 4. Шина событий (опционально)
	var events port.ListingEventsPort
	var registry *contracts.Registry
	if cfg.RabbitMQ.Enabled {
		registry, err = contracts.NewRegistry()
		if err != nil {
			return fmt.Errorf("failed to load event contracts: %w", err)
		}
		events, err = a.initPublisher(baseLogger, registry)
		if err != nil {
			return err
		}
	}

	// 5. Сценарии
	sources := make(map[domain.Category]string)
	for _, category := range constants.DefaultIngestOrder {
		if u, ok := cfg.IngestURL(category); ok {
			sources[category] = u
		}
	}
	runIngestionUC := usecase.NewRunIngestionUseCase(fetcher, extractor, storage, events, sources, usecase.IngestionSettings{
		MaxPages:     cfg.Ingest.MaxPages,
		MaxFragments: cfg.Ingest.MaxFragments,
		RunTimeout:   cfg.Ingest.RunTimeout,
		PageInterval: cfg.Ingest.PageInterval,
	})
	a.ingestCategoriesUC = usecase.NewIngestCategoriesUseCase(runIngestionUC, cfg.Ingest.ConcurrentCategories)

	// 6. Чат
	var linkTokens port.ChatLinkTokenPort
	if cfg.Telegram.LinkSigningKey != "" {
		tokenService, err := token_adapter.NewLinkTokenService(cfg.Telegram.LinkSigningKey, cfg.Telegram.LinkTokenTTL)
		if err != nil {
			return fmt.Errorf("failed to create link token service: %w", err)
		}
		linkTokens = tokenService
	}

	var notifier port.NotifierPort
	if cfg.Telegram.Token != "" {
		tgClient, err := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.Token, cfg.Telegram.PollTimeout+15*time.Second)
		if err != nil {
			return fmt.Errorf("failed to create telegram client: %w", err)
		}
		notifier = telegram.NewNotifierAdapter(tgClient)
		if cfg.Telegram.BotEnabled {
			bot := telegram.NewStartBot(tgClient, cfg.HTTP.PublicURL, cfg.Telegram.PollTimeout, baseLogger)
			if linkTokens != nil {
				bot.WithLinkTokens(linkTokens)
			}
			a.listeners = append(a.listeners, namedListener{"Telegram Bot", bot})
		}
	} else {
		a.logger.Warn("TELEGRAM_BOT_TOKEN is not set, chat delivery disabled", nil)
	}
	findListingsUC := usecase.NewFindListingsUseCase(storage, notifier)

	// 7. Очередь задач загрузки
	if cfg.RabbitMQ.Enabled {
		consumer, err := a.initIngestConsumer(baseLogger, registry)
		if err != nil {
			return err
		}
		a.listeners = append(a.listeners, namedListener{"Ingest Tasks Listener", consumer})
	}

	// 8. Расписание
	if cfg.Ingest.Schedule != "" {
		sched, err := scheduler.NewIngestScheduler(cfg.Ingest.Schedule, constants.DefaultIngestOrder, a.ingestCategoriesUC, baseLogger)
		if err != nil {
			return err
		}
		a.listeners = append(a.listeners, namedListener{"Ingest Scheduler", sched})
	}

	// 9. REST
	a.ingestHandler = rest.NewIngestHandler(contextkeys.ContextWithLogger(a.appCtx, baseLogger), a.ingestCategoriesUC)
	listingsHandler := rest.NewListingsHandler(findListingsUC)
	if linkTokens != nil {
		listingsHandler.WithLinkTokens(linkTokens)
	}
	router := rest.NewRouter(
		listingsHandler,
		a.ingestHandler,
		rest.NewChallengeHandler(gate),
		cfg.HTTP.AllowedOrigins,
		baseLogger,
	)
	a.server = rest.NewServer(cfg.HTTP.Port, router, baseLogger)

	a.logger.Info("Application components initialized", port.Fields{
		"storage_driver": cfg.Storage.Driver,
		"fetcher_mode":   cfg.Fetcher.Mode,
		"listeners":      len(a.listeners),
	})
	return nil
}

func (a *App) initStorage(logger port.LoggerPort) (port.ListingStoragePort, error) {
	cfg := a.config
	switch cfg.Storage.Driver {
	case "badger":
		store, err := badgerstore.Open(badgerstore.Options{Path: cfg.Badger.Path, InMemory: cfg.Badger.InMemory}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger storage: %w", err)
		}
		a.badgerStore = store
		a.logger.Info("Badger storage opened", port.Fields{"path": cfg.Badger.Path, "in_memory": cfg.Badger.InMemory})
		return store, nil

	default:
		dbPool, err := postgres.NewClient(a.appCtx, postgres.Config{DatabaseURL: cfg.Database.URL})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		a.dbPool = dbPool
		a.logger.Info("Successfully connected to PostgreSQL pool!", nil)

		if cfg.Database.AutoMigrate {
			if err := postgres_adapter.EnsureSchema(a.appCtx, dbPool); err != nil {
				return nil, fmt.Errorf("failed to ensure schema: %w", err)
			}
		}
		return postgres_adapter.NewPostgresListingStorageAdapter(dbPool)
	}
}

func (a *App) initFetcher(resolver port.ChallengeResolverPort) (port.PageFetcherPort, error) {
	cfg := a.config.Fetcher
	if cfg.Mode == "http" {
		return httpfetcher.NewHTTPFetcherAdapter(httpfetcher.Options{
			UserAgent:      cfg.UserAgent,
			Lang:           cfg.Lang,
			RandomDelay:    cfg.RandomDelay,
			RequestTimeout: cfg.RequestTimeout,
		}, resolver)
	}
	return browserfetcher.NewBrowserFetcherAdapter(browserfetcher.Options{
		Headless:     cfg.Headless,
		UserAgent:    cfg.UserAgent,
		Lang:         cfg.Lang,
		WindowWidth:  cfg.WindowWidth,
		WindowHeight: cfg.WindowHeight,
	}, resolver)
}

func (a *App) initConnManager(baseLogger port.LoggerPort) error {
	if a.connManager != nil {
		return nil
	}
	connManagerBridge := logger_adapter.NewKVBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
	connManager, err := rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: a.config.RabbitMQ.URL}, connManagerBridge)
	if err != nil {
		return fmt.Errorf("failed to create connection manager: %w", err)
	}
	a.connManager = connManager
	a.logger.Info("RabbitMQ Connection Manager initialized.", nil)
	return nil
}

func (a *App) initPublisher(baseLogger port.LoggerPort, registry *contracts.Registry) (port.ListingEventsPort, error) {
	if err := a.initConnManager(baseLogger); err != nil {
		return nil, err
	}

	producer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		ExchangeName:             constants.ExchangeAvitoParser,
		ExchangeType:             constants.ExchangeAvitoParserType,
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   logger_adapter.NewKVBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
	}, a.connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	a.eventProducer = producer

	return rabbitmq_adapter.NewListingEventsPublisherAdapter(producer, registry, constants.RoutingKeyListingSaved)
}

func (a *App) initIngestConsumer(baseLogger port.LoggerPort, registry *contracts.Registry) (port.EventListenerPort, error) {
	if err := a.initConnManager(baseLogger); err != nil {
		return nil, err
	}

	consumerCfg := rabbitmq_consumer.ConsumerConfig{
		Config:                 rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		QueueName:              constants.QueueIngestTasks,
		DeclareQueue:           true,
		DurableQueue:           true,
		ExchangeNameForBind:    constants.ExchangeAvitoParser,
		DeclareExchangeForBind: true,
		ExchangeTypeForBind:    constants.ExchangeAvitoParserType,
		DurableExchangeForBind: true,
		RoutingKeyForBind:      constants.RoutingKeyIngestTasks,
		PrefetchCount:          1,
		ConsumerTag:            "avito_ingest_tasks_consumer",

		EnableRetryMechanism: true,
		RetryExchange:        constants.RetryExchangeIngestTasks,
		RetryQueue:           constants.RetryQueueIngestTasks,
		RetryTTL:             constants.RetryTTLIngestTasks,
		FinalDLXExchange:     constants.FinalDLXExchangeIngestTasks,
		FinalDLQ:             constants.FinalDLQIngestTasks,
		FinalDLQRoutingKey:   constants.FinalDLQRoutingKeyIngestTasks,
		MaxRetries:           constants.MaxRetriesIngestTasks,
	}

	listener, err := rabbitmq_adapter.NewIngestTasksConsumerAdapter(consumerCfg, a.ingestCategoriesUC, registry, baseLogger, a.connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest tasks listener: %w", err)
	}
	a.logger.Info("Ingest Tasks Listener initialized.", nil)
	return listener, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом
func (a *App) Run() error {
	var wg sync.WaitGroup
	componentErrors := make(chan error, len(a.listeners)+1)

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Stop(stopCtx); err != nil {
			a.logger.Error("Error stopping REST server", err, nil)
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.ingestHandler.Wait()
		a.logger.Info("All background processes finished.", nil)

		a.closeResources()
	}()

	a.logger.Info("Application is starting...", nil)

	startListener := func(name string, listener port.EventListenerPort) {
		defer wg.Done()
		listenerLogger := a.logger.WithFields(port.Fields{"listener_name": name})
		listenerLogger.Info("Starting listener...", nil)

		if err := listener.Start(a.appCtx); err != nil {
			listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
			componentErrors <- fmt.Errorf("%s error: %w", name, err)
		} else {
			listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
		}
	}

	for _, l := range a.listeners {
		wg.Add(1)
		go startListener(l.name, l.listener)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.server.Start(); err != nil {
			componentErrors <- fmt.Errorf("REST server error: %w", err)
		}
	}()

	if a.config.Ingest.OnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, traceID := contextkeys.EnsureTraceID(a.appCtx)
			ctx = contextkeys.ContextWithLogger(ctx, a.baseLogger.WithFields(port.Fields{"trigger": "startup", "trace_id": traceID}))
			if _, err := a.ingestCategoriesUC.Execute(ctx, constants.DefaultIngestOrder); err != nil {
				a.logger.Error("Startup ingestion finished with errors", err, nil)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	a.logger.Info("Application running. Waiting for signals or component error...", nil)
	var runErr error
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received signal, shutting down", port.Fields{"signal": receivedSignal.String()})
	case err := <-componentErrors:
		a.logger.Error("A critical component failed, shutting down", err, nil)
		runErr = err
	case <-a.appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down", nil)
	}

	// отмена главного контекста останавливает слушателей и текущие проходы
	a.cancelApp()

	return runErr
}

// closeResources закрывает все, что успело открыться. Порядок: слушатели, шина, хранилище, логгер.
func (a *App) closeResources() {
	for _, l := range a.listeners {
		if err := l.listener.Close(); err != nil {
			a.logger.Error("Error closing listener", err, port.Fields{"listener_name": l.name})
		}
	}

	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil {
			a.logger.Error("Error closing event producer", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection manager", err, nil)
		}
	}

	if a.badgerStore != nil {
		if err := a.badgerStore.Close(); err != nil {
			a.logger.Error("Error closing badger storage", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
	}

	a.logger.Info("Application shut down gracefully.", nil)

	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			log.Printf("App: Error closing fluent client: %v\n", err)
		}
	}
}

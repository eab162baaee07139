package constants

// Обменник сервиса
const (
	ExchangeAvitoParser     = "avito_parser_exchange"
	ExchangeAvitoParserType = "direct"
)

// Имена очередей
const (
	QueueIngestTasks = "avito_ingest_tasks"
)

// Ключи маршрутизации
const (
	RoutingKeyListingSaved = "listing.saved"
	RoutingKeyIngestTasks  = "avito.ingest.tasks"
)

// Повторы задач загрузки
const (
	RetryExchangeIngestTasks = "avito_ingest_tasks_retry"
	RetryQueueIngestTasks    = "avito_ingest_tasks_retry_wait"
	RetryTTLIngestTasks      = 60_000 // мс
	MaxRetriesIngestTasks    = 3

	FinalDLXExchangeIngestTasks   = "avito_ingest_tasks_final_dlx"
	FinalDLQIngestTasks           = "avito_ingest_tasks_final_dlq"
	FinalDLQRoutingKeyIngestTasks = "avito_ingest_tasks.dlq.key"
)

// Версии контрактов событий
const (
	EventListingSaved        = "ListingSavedEvent"
	EventListingSavedVersion = "1.0.0"
	EventIngestTask          = "IngestTaskEvent"
	EventIngestTaskVersion   = "1.0.0"
)

package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"fmt"

	logger_adapter "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/adapters/logger"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
	usecases_port "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port/usecases"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/rabbitmq/rabbitmq_common"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// IngestTasksConsumerAdapter слушает очередь задач на загрузку и запускает проходы по категориям
type IngestTasksConsumerAdapter struct {
	consumer  *rabbitmq_consumer.DistributingConsumer
	useCase   usecases_port.IngestCategoriesPort
	validator eventValidator
	logger    port.LoggerPort
}

func NewIngestTasksConsumerAdapter(
	cfg rabbitmq_consumer.ConsumerConfig,
	useCase usecases_port.IngestCategoriesPort,
	validator eventValidator,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*IngestTasksConsumerAdapter, error) {
	if useCase == nil || validator == nil {
		return nil, fmt.Errorf("ingest tasks consumer: use case and validator are required")
	}
	adapter := &IngestTasksConsumerAdapter{useCase: useCase, validator: validator, logger: logger}

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_distributing_consumer", "consumer_tag": cfg.ConsumerTag})
	cfg.Logger = logger_adapter.NewKVBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(cfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, err
	}
	adapter.consumer = consumer
	return adapter, nil
}

func (a *IngestTasksConsumerAdapter) messageHandler(ctx context.Context, d amqp.Delivery) error {
	traceID, ok := d.Headers["x-trace-id"].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}

	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"delivery_tag": d.DeliveryTag,
		"routing_key":  d.RoutingKey,
	})

	// сообщение, не прошедшее контракт, повторять бессмысленно
	if err := a.validator.ValidateEvent(constants.EventIngestTask, constants.EventIngestTaskVersion, d.Body); err != nil {
		msgLogger.Error("Ingest task does not match contract, dropping", err, port.Fields{"body": string(d.Body)})
		return nil
	}

	var dto IngestTaskDTO
	if err := json.Unmarshal(d.Body, &dto); err != nil {
		msgLogger.Error("Failed to unmarshal ingest task, dropping", err, nil)
		return nil
	}
	categories, err := dto.toDomain()
	if err != nil {
		msgLogger.Error("Ingest task has invalid categories, dropping", err, nil)
		return nil
	}

	handlerLogger := msgLogger.WithFields(port.Fields{"task_id": dto.TaskID})
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)
	ctx = contextkeys.ContextWithLogger(ctx, handlerLogger)

	handlerLogger.Info("Ingest task received", port.Fields{"categories": dto.Categories})

	if _, err := a.useCase.Execute(ctx, categories); err != nil {
		handlerLogger.Error("Ingest task failed, message will be retried", err, nil)
		return err
	}

	handlerLogger.Info("Ingest task completed", nil)
	return nil
}

func (a *IngestTasksConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *IngestTasksConsumerAdapter) Close() error { return a.consumer.Close() }

package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

type jsonPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error
}

type eventValidator interface {
	ValidateEvent(eventType, version string, body []byte) error
}

// ListingEventsPublisherAdapter отправляет события о новых объявлениях в обменник сервиса
type ListingEventsPublisherAdapter struct {
	producer   jsonPublisher
	validator  eventValidator
	routingKey string
}

func NewListingEventsPublisherAdapter(producer jsonPublisher, validator eventValidator, routingKey string) (*ListingEventsPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("routingKey cannot be empty")
	}
	return &ListingEventsPublisherAdapter{
		producer:   producer,
		validator:  validator,
		routingKey: routingKey,
	}, nil
}

// PublishSaved сериализует событие, сверяет его со схемой и публикует
func (a *ListingEventsPublisherAdapter) PublishSaved(ctx context.Context, event domain.SavedListingEvent) error {
	body, err := json.Marshal(toListingSavedDTO(event))
	if err != nil {
		return fmt.Errorf("failed to marshal listing saved event: %w", err)
	}

	if err := a.validator.ValidateEvent(constants.EventListingSaved, constants.EventListingSavedVersion, body); err != nil {
		return fmt.Errorf("listing saved event does not match contract: %w", err)
	}

	headers := amqp.Table{
		"x-event-type":    constants.EventListingSaved,
		"x-event-version": constants.EventListingSavedVersion,
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		headers["x-trace-id"] = traceID
	}

	if err := a.producer.PublishJSON(ctx, a.routingKey, body, headers); err != nil {
		return fmt.Errorf("failed to publish listing saved event: %w", err)
	}
	return nil
}

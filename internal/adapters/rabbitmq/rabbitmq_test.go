package rabbitmq_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contracts"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedPublish struct {
	routingKey string
	body       []byte
	headers    amqp.Table
}

type fakePublisher struct {
	published []capturedPublish
	err       error
}

func (f *fakePublisher) PublishJSON(_ context.Context, routingKey string, body []byte, headers amqp.Table) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, capturedPublish{routingKey: routingKey, body: body, headers: headers})
	return nil
}

type fakeIngest struct {
	calls [][]domain.Category
	err   error
}

func (f *fakeIngest) Execute(_ context.Context, categories []domain.Category) ([]*domain.IngestionStats, error) {
	f.calls = append(f.calls, categories)
	return nil, f.err
}

func newRegistry(t *testing.T) *contracts.Registry {
	t.Helper()
	registry, err := contracts.NewRegistry()
	require.NoError(t, err)
	return registry
}

func saleEvent() domain.SavedListingEvent {
	return domain.SavedListingEvent{
		Record: domain.ListingRecord{
			Category:     domain.CategorySale,
			Address:      "Невский пр., 1",
			Price:        "9 500 000 ₽",
			Rooms:        "2-к. квартира",
			Area:         "54 м²",
			Link:         "https://www.avito.ru/sankt-peterburg/kvartiry/1",
			PropertyType: domain.PropertyTypeResale,
		},
		RunID:   "3f2b6f9e-8a37-4c1e-9a55-2d5f0b2a7c11",
		SavedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishSaved(t *testing.T) {
	producer := &fakePublisher{}
	adapter, err := NewListingEventsPublisherAdapter(producer, newRegistry(t), constants.RoutingKeyListingSaved)
	require.NoError(t, err)

	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-42")
	require.NoError(t, adapter.PublishSaved(ctx, saleEvent()))

	require.Len(t, producer.published, 1)
	msg := producer.published[0]
	assert.Equal(t, constants.RoutingKeyListingSaved, msg.routingKey)
	assert.Equal(t, "trace-42", msg.headers["x-trace-id"])
	assert.Equal(t, constants.EventListingSaved, msg.headers["x-event-type"])

	var dto ListingSavedDTO
	require.NoError(t, json.Unmarshal(msg.body, &dto))
	assert.Equal(t, "sale", dto.Category)
	assert.Equal(t, "вторичка", dto.PropertyType)
}

func TestPublishSavedOmitsEmptyOptionalFields(t *testing.T) {
	producer := &fakePublisher{}
	adapter, err := NewListingEventsPublisherAdapter(producer, newRegistry(t), constants.RoutingKeyListingSaved)
	require.NoError(t, err)

	event := saleEvent()
	event.Record.Category = domain.CategoryRental
	event.Record.Link = ""
	event.Record.PropertyType = ""
	require.NoError(t, adapter.PublishSaved(context.Background(), event))

	require.Len(t, producer.published, 1)
	assert.NotContains(t, string(producer.published[0].body), "link")
	assert.NotContains(t, string(producer.published[0].body), "property_type")
	_, hasTrace := producer.published[0].headers["x-trace-id"]
	assert.False(t, hasTrace)
}

func TestPublishSavedRejectsContractViolation(t *testing.T) {
	producer := &fakePublisher{}
	adapter, err := NewListingEventsPublisherAdapter(producer, newRegistry(t), constants.RoutingKeyListingSaved)
	require.NoError(t, err)

	event := saleEvent()
	event.RunID = "not-a-uuid"
	assert.Error(t, adapter.PublishSaved(context.Background(), event))
	assert.Empty(t, producer.published)
}

func TestPublishSavedPropagatesProducerError(t *testing.T) {
	producer := &fakePublisher{err: errors.New("channel closed")}
	adapter, err := NewListingEventsPublisherAdapter(producer, newRegistry(t), constants.RoutingKeyListingSaved)
	require.NoError(t, err)

	assert.ErrorContains(t, adapter.PublishSaved(context.Background(), saleEvent()), "channel closed")
}

func TestNewListingEventsPublisherAdapterValidation(t *testing.T) {
	registry := newRegistry(t)
	_, err := NewListingEventsPublisherAdapter(nil, registry, "rk")
	assert.Error(t, err)
	_, err = NewListingEventsPublisherAdapter(&fakePublisher{}, nil, "rk")
	assert.Error(t, err)
	_, err = NewListingEventsPublisherAdapter(&fakePublisher{}, registry, "")
	assert.Error(t, err)
}

func newTestConsumer(t *testing.T, ingest *fakeIngest) *IngestTasksConsumerAdapter {
	return &IngestTasksConsumerAdapter{
		useCase:   ingest,
		validator: newRegistry(t),
		logger:    contextkeys.NoopLogger(),
	}
}

func TestIngestTaskHandlerRunsCategories(t *testing.T) {
	ingest := &fakeIngest{}
	adapter := newTestConsumer(t, ingest)

	err := adapter.messageHandler(context.Background(), amqp.Delivery{
		Body:    []byte(`{"task_id":"3f2b6f9e-8a37-4c1e-9a55-2d5f0b2a7c11","categories":["sale","rental"]}`),
		Headers: amqp.Table{"x-trace-id": "trace-1"},
	})
	require.NoError(t, err)

	require.Len(t, ingest.calls, 1)
	assert.Equal(t, []domain.Category{domain.CategorySale, domain.CategoryRental}, ingest.calls[0])
}

func TestIngestTaskHandlerDropsInvalidPayload(t *testing.T) {
	ingest := &fakeIngest{}
	adapter := newTestConsumer(t, ingest)

	for _, body := range []string{`not json`, `{"categories":[]}`, `{"categories":["garage"]}`} {
		assert.NoError(t, adapter.messageHandler(context.Background(), amqp.Delivery{Body: []byte(body)}), body)
	}
	assert.Empty(t, ingest.calls)
}

func TestIngestTaskHandlerReturnsRunError(t *testing.T) {
	ingest := &fakeIngest{err: domain.ErrRunInProgress}
	adapter := newTestConsumer(t, ingest)

	err := adapter.messageHandler(context.Background(), amqp.Delivery{Body: []byte(`{"categories":["rental"]}`)})
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestIngestTaskDTOToDomain(t *testing.T) {
	categories, err := IngestTaskDTO{Categories: []string{"rental"}}.toDomain()
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategoryRental}, categories)

	_, err = IngestTaskDTO{Categories: []string{"rental", "office"}}.toDomain()
	assert.Error(t, err)
}

package rabbitmq_consumer

import (
	"context"
	"fmt"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler обрабатывает одно сообщение. При nil сообщение подтверждается, ошибка отправляет его на повтор или в DLQ.
// ack/nack выполняет пакет.
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// Ack-решение по результату обработчика
type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDrop
	outcomeDeadLetter
)

// decide выбирает, что делать с сообщением после обработчика
func decide(handlerErr error, retryEnabled bool, deaths int64, maxRetries int) outcome {
	switch {
	case handlerErr == nil:
		return outcomeAck
	case !retryEnabled:
		return outcomeDrop
	case deaths < int64(maxRetries):
		return outcomeRetry
	default:
		return outcomeDeadLetter
	}
}

// DistributingConsumer запускает обработчик для каждого сообщения в отдельной горутине.
// Параллелизм ограничивается PrefetchCount.
type DistributingConsumer struct {
	base    *baseConsumer
	handler MessageHandler
}

func NewDistributingConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*DistributingConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("distributing Consumer: message handler is required")
	}
	bc, err := newBaseConsumer(cfg, connManager)
	if err != nil {
		return nil, fmt.Errorf("distributing Consumer: %w", err)
	}
	return &DistributingConsumer{base: bc, handler: handler}, nil
}

// StartConsuming блокируется до отмены контекста или закрытия соединения
func (c *DistributingConsumer) StartConsuming(ctx context.Context) error {
	b := c.base
	if b.channel == nil || b.connection == nil || b.connection.IsClosed() {
		return fmt.Errorf("distributing Consumer: not connected")
	}

	msgs, err := b.channel.Consume(b.config.QueueName, b.config.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("distributing Consumer: failed to consume from '%s': %w", b.config.QueueName, err)
	}

	notifyClose := b.connection.NotifyClose(make(chan *amqp.Error, 1))
	b.Logger.Info("[*] Waiting for messages", "queue_name", b.config.QueueName)

	for {
		// отмена проверяется первой, чтобы не брать новое сообщение после остановки
		select {
		case <-ctx.Done():
			b.Logger.Info("Context cancelled, consumer stops", "consumer_tag", b.config.ConsumerTag)
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			b.Logger.Info("Context cancelled, consumer stops", "consumer_tag", b.config.ConsumerTag)
			return nil
		case amqpErr := <-notifyClose:
			if amqpErr == nil {
				return nil
			}
			b.Logger.Error(amqpErr, "Connection closed for consumer", "consumer_tag", b.config.ConsumerTag)
			return amqpErr
		case d, ok := <-msgs:
			if !ok {
				b.Logger.Info("Deliveries channel closed", "consumer_tag", b.config.ConsumerTag)
				return nil
			}
			b.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer b.wg.Done()
				c.process(ctx, delivery)
			}(d)
		}
	}
}

func (c *DistributingConsumer) process(ctx context.Context, d amqp.Delivery) {
	b := c.base
	b.Logger.Debug("[->] Processing message", "delivery_tag", d.DeliveryTag)

	handlerErr := c.handler(ctx, d)
	deaths := deathCount(d.Headers, b.config.QueueName)

	switch decide(handlerErr, b.config.EnableRetryMechanism, deaths, b.config.MaxRetries) {
	case outcomeAck:
		_ = d.Ack(false)
		b.Logger.Debug("[+] Message acked", "delivery_tag", d.DeliveryTag)

	case outcomeDrop:
		b.Logger.Error(handlerErr, "Handler failed, retries disabled, dropping message", "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)

	case outcomeRetry:
		b.Logger.Warn("Handler failed, message goes to retry", "delivery_tag", d.DeliveryTag, "death_count", deaths, "error", handlerErr.Error())
		_ = d.Nack(false, false)

	case outcomeDeadLetter:
		b.Logger.Error(handlerErr, "Max retries reached, publishing to final DLX", "delivery_tag", d.DeliveryTag)
		err := b.finalDlxPublisher.Publish(context.Background(), b.config.FinalDLQRoutingKey, amqp.Publishing{
			ContentType:  d.ContentType,
			Body:         d.Body,
			Headers:      d.Headers,
			DeliveryMode: amqp.Persistent,
		})
		if err != nil {
			b.Logger.Error(err, "Failed to publish to final DLX, message goes to retry again", "delivery_tag", d.DeliveryTag)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	}
}

// Close дожидается обработчиков и закрывает канал
func (c *DistributingConsumer) Close() error {
	return c.base.Close()
}

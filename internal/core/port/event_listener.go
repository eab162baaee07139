package port

import "context"

// EventListenerPort определяет контракт для компонента, который слушает
// внешние события (сообщения из очереди, расписание, входящие запросы) и запускает
// соответствующую бизнес-логику
type EventListenerPort interface {
	// Start запускает слушателя и блокируется до отмены контекста
	Start(ctx context.Context) error

	// Close корректно останавливает слушателя, дожидаясь завершения активных задач
	Close() error
}

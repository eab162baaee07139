package port

import "context"

// ChatLinkTokenPort подписывает ссылку на веб-интерфейс фильтров идентификатором чата,
// чтобы подборку нельзя было отправить в чужой чат подменой user_id
type ChatLinkTokenPort interface {
	Issue(ctx context.Context, chatID string) (string, error)

	// Verify возвращает идентификатор чата, на который выписан токен
	Verify(ctx context.Context, token string) (string, error)
}

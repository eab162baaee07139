package port

import "context"

// PageFetcherPort открывает сессии браузера (или HTTP-клиента) для загрузки индексных страниц
type PageFetcherPort interface {
	// OpenSession создает новую сессию. Одна сессия обслуживает все страницы одного прохода.
	OpenSession(ctx context.Context) (PageSessionPort, error)
}

// PageSessionPort представляет открытую сессию загрузки страниц
type PageSessionPort interface {
	// FetchIndexPage возвращает полную разметку страницы после прохождения проверки на робота,
	// прокрутки и ожидания карточек. Пустая страница не считается ошибкой.
	FetchIndexPage(ctx context.Context, url string) (string, error)

	// Close освобождает сессию. Безопасен для повторного вызова.
	Close() error
}

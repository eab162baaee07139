package browserfetcher

import (
	"context"
	"time"
)

// browserDriver описывает минимальный набор операций над вкладкой браузера, который нужен сессии.
// Реализация на chromedp находится в chromedp_driver.go, в тестах используется фейк.
type browserDriver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	PageSource(ctx context.Context) (string, error)
	ScrollHeight(ctx context.Context) (int64, error)
	ScrollTo(ctx context.Context, y int64) error
	// WaitPresent ждет появления элемента. false без ошибки означает, что истек timeout.
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Close() error
}

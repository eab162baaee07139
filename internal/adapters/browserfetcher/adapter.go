package browserfetcher

import (
	"context"
	"fmt"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// Options задает настройки браузера и поведения на странице
type Options struct {
	Headless     bool
	UserAgent    string
	Lang         string
	WindowWidth  int
	WindowHeight int

	ChallengeMarkers []string
	ReadySelector    string
	Timings          Timings
}

// BrowserFetcherAdapter открывает сессии chromedp для загрузки индексных страниц
type BrowserFetcherAdapter struct {
	opts      Options
	resolver  port.ChallengeResolverPort
	newDriver func(ctx context.Context, opts Options) (browserDriver, error)
}

// NewBrowserFetcherAdapter создает адаптер. Незаданные маркеры, селектор и паузы
// заменяются значениями по умолчанию.
func NewBrowserFetcherAdapter(opts Options, resolver port.ChallengeResolverPort) (*BrowserFetcherAdapter, error) {
	if resolver == nil {
		return nil, fmt.Errorf("browser fetcher: challenge resolver is required")
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constants.DesktopUserAgent
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}
	if len(opts.ChallengeMarkers) == 0 {
		opts.ChallengeMarkers = constants.ChallengeMarkers
	}
	if opts.ReadySelector == "" {
		opts.ReadySelector = constants.ListingReadySelector
	}
	if opts.Timings == (Timings{}) {
		opts.Timings = DefaultTimings()
	}

	return &BrowserFetcherAdapter{
		opts:      opts,
		resolver:  resolver,
		newDriver: newChromeDriver,
	}, nil
}

// OpenSession запускает браузер. Сессия обслуживает все страницы одного прохода
// и должна быть закрыта вызывающим.
func (a *BrowserFetcherAdapter) OpenSession(ctx context.Context) (port.PageSessionPort, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "BrowserFetcher"})

	driver, err := a.newDriver(ctx, a.opts)
	if err != nil {
		logger.Error("Failed to start browser session", err, nil)
		return nil, fmt.Errorf("browser fetcher: %w", err)
	}

	logger.Info("Browser session opened", port.Fields{
		"headless":   a.opts.Headless,
		"window":     fmt.Sprintf("%dx%d", a.opts.WindowWidth, a.opts.WindowHeight),
		"lang":       a.opts.Lang,
		"user_agent": a.opts.UserAgent,
	})

	return newBrowserSession(driver, a.resolver, a.opts), nil
}

package browserfetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// maskWebdriverJS выполняется в каждом новом документе до скриптов страницы
const maskWebdriverJS = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['ru-RU', 'ru'] });
window.chrome = window.chrome || { runtime: {} };
`

const startupTimeout = 30 * time.Second

type chromeDriver struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
}

// newChromeDriver запускает браузер с подавлением признаков автоматизации.
// Браузер живет, пока жив parent или пока не вызван Close.
func newChromeDriver(parent context.Context, opts Options) (browserDriver, error) {
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(parent, buildAllocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	d := &chromeDriver{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
	}

	startCtx, cancel := context.WithTimeout(browserCtx, startupTimeout)
	defer cancel()

	err := chromedp.Run(startCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(maskWebdriverJS).Do(ctx)
			return err
		}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("browser failed startup: %w", err)
	}

	return d, nil
}

func buildAllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocatorOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	}

	if opts.Lang != "" {
		allocatorOpts = append(allocatorOpts, chromedp.Flag("lang", opts.Lang))
	}
	if opts.Headless {
		allocatorOpts = append(allocatorOpts, chromedp.Flag("headless", "new"))
	}

	return allocatorOpts
}

// run выполняет действия во вкладке браузера с учетом отмены ctx вызывающего
func (d *chromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *chromeDriver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *chromeDriver) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *chromeDriver) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := d.run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, err
	}
	return height, nil
}

func (d *chromeDriver) ScrollTo(ctx context.Context, y int64) error {
	return d.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d);", y), nil))
}

func (d *chromeDriver) WaitPresent(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := d.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, err
}

func (d *chromeDriver) Close() error {
	d.browserCancel()
	d.allocatorCancel()
	return nil
}

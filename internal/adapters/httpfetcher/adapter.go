package httpfetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// Options задает настройки HTTP-режима загрузки
type Options struct {
	UserAgent        string
	Lang             string
	RandomDelay      time.Duration // случайная задержка перед запросом, при 0 ее нет
	RequestTimeout   time.Duration
	ChallengeMarkers []string
	ReadySelector    string
}

// HTTPFetcherAdapter загружает индексные страницы обычными HTTP-запросами через colly.
// Подходит, когда выдача отдается без JavaScript.
type HTTPFetcherAdapter struct {
	opts      Options
	resolver  port.ChallengeResolverPort
	collector *colly.Collector
}

func NewHTTPFetcherAdapter(opts Options, resolver port.ChallengeResolverPort) (*HTTPFetcherAdapter, error) {
	if resolver == nil {
		return nil, fmt.Errorf("http fetcher: challenge resolver is required")
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constants.DesktopUserAgent
	}
	if opts.Lang == "" {
		opts.Lang = "ru-RU"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.ChallengeMarkers) == 0 {
		opts.ChallengeMarkers = constants.ChallengeMarkers
	}
	if opts.ReadySelector == "" {
		opts.ReadySelector = constants.ListingReadySelector
	}

	c := colly.NewCollector(colly.AllowURLRevisit(), colly.UserAgent(opts.UserAgent))
	c.SetRequestTimeout(opts.RequestTimeout)
	// тело ответов с кодом ошибки тоже нужно: проверка на робота часто приходит с 403/429
	c.ParseHTTPErrorResponse = true

	// Эти правила наследуются всеми клонами коллектора
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		RandomDelay: opts.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("http fetcher: failed to set limit rule: %w", err)
	}

	return &HTTPFetcherAdapter{
		opts:      opts,
		resolver:  resolver,
		collector: c,
	}, nil
}

// OpenSession создает сессию на клоне общего коллектора. Колбэки не клонируются,
// поэтому расширения подключаются к клону.
func (a *HTTPFetcherAdapter) OpenSession(ctx context.Context) (port.PageSessionPort, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "HTTPFetcher"})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("http fetcher: %w", err)
	}

	collector := a.collector.Clone()
	extensions.Referer(collector)

	session := newHTTPSession(collector, a.resolver, a.opts)

	logger.Info("HTTP session opened", port.Fields{"user_agent": a.opts.UserAgent})
	return session, nil
}

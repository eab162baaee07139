package httpfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/normalizer"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/gocolly/colly/v2"
)

const maxChallengeRounds = 3

var errSessionClosed = errors.New("http session is closed")

type pageResponse struct {
	status int
	body   []byte
	items  int
}

// httpSession используется одним проходом последовательно.
// Все запросы сессии идут с общим colly.Context, чтобы Referer переходил между страницами.
type httpSession struct {
	collector *colly.Collector
	resolver  port.ChallengeResolverPort
	opts      Options
	pageCtx   *colly.Context
	closed    bool

	current  *pageResponse
	visitErr error
}

func newHTTPSession(collector *colly.Collector, resolver port.ChallengeResolverPort, opts Options) *httpSession {
	s := &httpSession{collector: collector, resolver: resolver, opts: opts, pageCtx: colly.NewContext()}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", opts.Lang)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})
	collector.OnResponse(func(r *colly.Response) {
		if s.current == nil {
			return
		}
		s.current.status = r.StatusCode
		s.current.body = r.Body
	})
	collector.OnHTML(opts.ReadySelector, func(_ *colly.HTMLElement) {
		if s.current != nil {
			s.current.items++
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		s.visitErr = err
	})

	return s
}

// FetchIndexPage загружает страницу, при проверке на робота ждет оператора и запрашивает ее снова.
// Для страницы без карточек объявлений возвращается пустая строка без ошибки.
func (s *httpSession) FetchIndexPage(ctx context.Context, url string) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "HTTPFetcher",
		"url":       url,
	})
	if s.closed {
		return "", &domain.FetchError{URL: url, Stage: "navigate", Err: errSessionClosed}
	}

	for round := 0; ; round++ {
		resp, err := s.visit(ctx, url)
		if err != nil {
			return "", &domain.FetchError{URL: url, Stage: "navigate", Err: err}
		}

		marker, found := normalizer.FindMarker(string(resp.body), s.opts.ChallengeMarkers)
		if found {
			if round >= maxChallengeRounds {
				return "", &domain.FetchError{URL: url, Stage: "challenge", Err: fmt.Errorf("challenge persists after %d rounds", round)}
			}
			challenge := domain.ChallengeDetected{URL: url, Marker: marker, DetectedAt: time.Now()}
			logger.Warn("Bot challenge detected, waiting for operator", port.Fields{"marker": marker, "round": round + 1})

			if err := s.resolver.AwaitClearance(ctx, challenge); err != nil {
				return "", &domain.FetchError{URL: url, Stage: "challenge", Err: err}
			}
			logger.Info("Challenge acknowledged, requesting page again", nil)
			continue
		}

		if resp.status >= http.StatusBadRequest {
			return "", &domain.FetchError{URL: url, Stage: "read", Err: fmt.Errorf("unexpected status %d", resp.status)}
		}

		if resp.items == 0 {
			logger.Info("Page has no listing cards", nil)
			return "", nil
		}

		logger.Debug("Page fetched", port.Fields{"cards": resp.items, "bytes": len(resp.body)})
		return string(resp.body), nil
	}
}

func (s *httpSession) visit(ctx context.Context, url string) (*pageResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := &pageResponse{}
	s.current, s.visitErr = resp, nil
	defer func() { s.current = nil }()

	s.collector.Context = ctx
	err := s.collector.Request(http.MethodGet, url, nil, s.pageCtx, nil)
	if s.visitErr != nil {
		return nil, s.visitErr
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *httpSession) Close() error {
	s.closed = true
	return nil
}

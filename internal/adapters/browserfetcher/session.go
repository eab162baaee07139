package browserfetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/normalizer"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// PageState описывает состояние загрузки одной индексной страницы
type PageState string

const (
	StateLoading           PageState = "loading"
	StateChallengeDetected PageState = "challenge_detected"
	StateAwaitingOperator  PageState = "awaiting_operator"
	StateResumed           PageState = "resumed"
	StateReady             PageState = "ready"
	StateEmpty             PageState = "empty"
	StateFailed            PageState = "failed"
)

// Стадии, которые попадают в FetchError
const (
	stageNavigate  = "navigate"
	stageRead      = "read"
	stageChallenge = "challenge"
	stageReload    = "reload"
	stageWait      = "wait"
)

// Сколько раз подряд можно попасть на проверку по одной странице
const maxChallengeRounds = 3

// Timings задает паузы, имитирующие поведение человека
type Timings struct {
	SettleMin       time.Duration // пауза после перехода на страницу, случайная в [SettleMin, SettleMax]
	SettleMax       time.Duration
	ScrollSteps     int
	ScrollPauseMin  time.Duration
	ScrollPauseMax  time.Duration
	ChallengeSettle time.Duration // пауза после перезагрузки страницы с пройденной проверкой
	ElementWait     time.Duration // ожидание появления карточек
}

// DefaultTimings возвращает паузы, с которыми сайт отдает выдачу без проверки
func DefaultTimings() Timings {
	return Timings{
		SettleMin:       5 * time.Second,
		SettleMax:       10 * time.Second,
		ScrollSteps:     3,
		ScrollPauseMin:  2 * time.Second,
		ScrollPauseMax:  4 * time.Second,
		ChallengeSettle: 5 * time.Second,
		ElementWait:     20 * time.Second,
	}
}

type browserSession struct {
	driver        browserDriver
	resolver      port.ChallengeResolverPort
	markers       []string
	readySelector string
	timings       Timings

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(min, max time.Duration) time.Duration

	mu      sync.Mutex
	history []PageState
	closed  bool
}

func newBrowserSession(driver browserDriver, resolver port.ChallengeResolverPort, opts Options) *browserSession {
	return &browserSession{
		driver:        driver,
		resolver:      resolver,
		markers:       opts.ChallengeMarkers,
		readySelector: opts.ReadySelector,
		timings:       opts.Timings,
		sleep:         sleepContext,
		jitter:        uniformJitter,
	}
}

// FetchIndexPage проводит страницу через состояния
// Loading -> [ChallengeDetected -> AwaitingOperator -> Resumed]* -> Ready | Empty | Failed.
func (s *browserSession) FetchIndexPage(ctx context.Context, url string) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "BrowserFetcher",
		"url":       url,
	})

	if s.isClosed() {
		return "", &domain.FetchError{URL: url, Stage: stageNavigate, Err: errSessionClosed}
	}

	s.resetHistory()
	s.transition(logger, StateLoading, nil)

	if err := s.driver.Navigate(ctx, url); err != nil {
		return "", s.fail(logger, url, stageNavigate, err)
	}
	if err := s.sleep(ctx, s.jitter(s.timings.SettleMin, s.timings.SettleMax)); err != nil {
		return "", s.fail(logger, url, stageNavigate, err)
	}

	if err := s.passChallenge(ctx, logger, url); err != nil {
		return "", err
	}

	s.scroll(ctx, logger)

	found, err := s.driver.WaitPresent(ctx, s.readySelector, s.timings.ElementWait)
	if err != nil {
		return "", s.fail(logger, url, stageWait, err)
	}
	if !found {
		s.transition(logger, StateEmpty, port.Fields{"selector": s.readySelector})
		return "", nil
	}

	markup, err := s.driver.PageSource(ctx)
	if err != nil {
		return "", s.fail(logger, url, stageRead, err)
	}

	s.transition(logger, StateReady, port.Fields{"markup_bytes": len(markup)})
	return markup, nil
}

// passChallenge блокируется на подтверждении оператора, пока на странице есть маркер проверки
func (s *browserSession) passChallenge(ctx context.Context, logger port.LoggerPort, url string) error {
	for round := 1; ; round++ {
		source, err := s.driver.PageSource(ctx)
		if err != nil {
			return s.fail(logger, url, stageRead, err)
		}

		marker, found := normalizer.FindMarker(source, s.markers)
		if !found {
			return nil
		}

		if round > maxChallengeRounds {
			return s.fail(logger, url, stageChallenge, fmt.Errorf("challenge still present after %d operator rounds", maxChallengeRounds))
		}

		challenge := domain.ChallengeDetected{URL: url, Marker: marker, DetectedAt: time.Now()}
		s.transition(logger, StateChallengeDetected, port.Fields{"marker": marker, "round": round})

		s.transition(logger, StateAwaitingOperator, nil)
		logger.Warn("Bot challenge on page, waiting for operator acknowledgment", port.Fields{"marker": marker})
		if err := s.resolver.AwaitClearance(ctx, challenge); err != nil {
			return s.fail(logger, url, stageChallenge, err)
		}

		s.transition(logger, StateResumed, nil)
		if err := s.driver.Reload(ctx); err != nil {
			return s.fail(logger, url, stageReload, err)
		}
		if err := s.sleep(ctx, s.timings.ChallengeSettle); err != nil {
			return s.fail(logger, url, stageReload, err)
		}
	}
}

// scroll прокручивает страницу долями высоты, чтобы догрузить ленивые карточки.
// Ошибки прокрутки не фатальны.
func (s *browserSession) scroll(ctx context.Context, logger port.LoggerPort) {
	for i := 0; i < s.timings.ScrollSteps; i++ {
		height, err := s.driver.ScrollHeight(ctx)
		if err != nil {
			logger.Warn("Failed to read scroll height, skipping scroll", port.Fields{"error": err.Error()})
			return
		}
		if err := s.driver.ScrollTo(ctx, height*int64(i+1)/4); err != nil {
			logger.Warn("Failed to scroll page", port.Fields{"error": err.Error(), "step": i + 1})
			return
		}
		if err := s.sleep(ctx, s.jitter(s.timings.ScrollPauseMin, s.timings.ScrollPauseMax)); err != nil {
			return
		}
	}
}

func (s *browserSession) fail(logger port.LoggerPort, url, stage string, err error) error {
	s.transition(logger, StateFailed, port.Fields{"stage": stage, "error": err.Error()})
	return &domain.FetchError{URL: url, Stage: stage, Err: err}
}

func (s *browserSession) transition(logger port.LoggerPort, state PageState, fields port.Fields) {
	s.mu.Lock()
	s.history = append(s.history, state)
	s.mu.Unlock()

	stateFields := port.Fields{"state": string(state)}
	for k, v := range fields {
		stateFields[k] = v
	}
	logger.Debug("Page state changed", stateFields)
}

func (s *browserSession) resetHistory() {
	s.mu.Lock()
	s.history = s.history[:0]
	s.mu.Unlock()
}

// States возвращает состояния, через которые прошла последняя страница
func (s *browserSession) States() []PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PageState(nil), s.history...)
}

func (s *browserSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *browserSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.driver.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func uniformJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}

var errSessionClosed = errors.New("browser session is closed")

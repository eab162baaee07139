package challenge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// Gate – это точка ручного подтверждения проверки на робота. Сессии браузера ждут в
// AwaitClearance, оператор снимает блокировку через Acknowledge из любого источника
// (консоль, сигнал, REST). Одно подтверждение отпускает все ожидающие сессии.
type Gate struct {
	timeout time.Duration

	mu      sync.Mutex
	cleared chan struct{}
	pending map[uint64]domain.ChallengeDetected
	nextID  uint64
}

// NewGate создает шлюз. При timeout == 0 оператор ожидается без ограничения.
func NewGate(timeout time.Duration) *Gate {
	return &Gate{
		timeout: timeout,
		cleared: make(chan struct{}),
		pending: make(map[uint64]domain.ChallengeDetected),
	}
}

// AwaitClearance блокируется до подтверждения оператора, отмены ctx или истечения timeout
func (g *Gate) AwaitClearance(ctx context.Context, challenge domain.ChallengeDetected) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "ChallengeGate",
		"url":       challenge.URL,
		"marker":    challenge.Marker,
	})

	if challenge.DetectedAt.IsZero() {
		challenge.DetectedAt = time.Now()
	}

	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.pending[id] = challenge
	cleared := g.cleared
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logger.Warn("Solve the challenge in the browser window, then acknowledge (Enter, SIGUSR1 or POST /api/v1/challenge/ack)", port.Fields{
		"timeout": g.timeout.String(),
	})

	select {
	case <-cleared:
		logger.Info("Challenge acknowledged by operator", port.Fields{"waited": time.Since(challenge.DetectedAt).String()})
		return nil
	case <-ctx.Done():
		return fmt.Errorf("challenge on %s not acknowledged: %w", challenge.URL, ctx.Err())
	}
}

// Acknowledge отпускает все ожидающие сессии
func (g *Gate) Acknowledge() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.pending) == 0 {
		return domain.ErrNoPendingChallenge
	}

	close(g.cleared)
	g.cleared = make(chan struct{})
	clear(g.pending)
	return nil
}

// Pending возвращает ожидающие подтверждения проверки, старые первыми
func (g *Gate) Pending() []domain.ChallengeDetected {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.ChallengeDetected, 0, len(g.pending))
	for _, c := range g.pending {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out
}

package port

import (
	"context"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// ChallengeResolverPort – это точка ручного вмешательства оператора при проверке на робота
type ChallengeResolverPort interface {
	// AwaitClearance блокируется, пока оператор не подтвердит прохождение проверки
	// или пока не отменен контекст.
	AwaitClearance(ctx context.Context, challenge domain.ChallengeDetected) error
}

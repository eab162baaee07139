package challenge

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// SignalAcknowledger подтверждает проверку по сигналу ОС (SIGUSR1 на unix)
type SignalAcknowledger struct {
	gate    *Gate
	signals []os.Signal
	logger  port.LoggerPort
}

func NewSignalAcknowledger(gate *Gate, logger port.LoggerPort) *SignalAcknowledger {
	return &SignalAcknowledger{
		gate:    gate,
		signals: acknowledgeSignals(),
		logger:  logger.WithFields(port.Fields{"component": "SignalAcknowledger"}),
	}
}

func (s *SignalAcknowledger) Start(ctx context.Context) error {
	if len(s.signals) == 0 {
		s.logger.Warn("No acknowledgment signal on this platform, listener disabled", nil)
		<-ctx.Done()
		return nil
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, s.signals...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			err := s.gate.Acknowledge()
			switch {
			case err == nil:
				s.logger.Info("Challenge acknowledged by signal", port.Fields{"signal": sig.String()})
			case errors.Is(err, domain.ErrNoPendingChallenge):
				s.logger.Debug("Signal ignored, no pending challenge", port.Fields{"signal": sig.String()})
			default:
				s.logger.Error("Failed to acknowledge challenge", err, nil)
			}
		}
	}
}

func (s *SignalAcknowledger) Close() error {
	return nil
}

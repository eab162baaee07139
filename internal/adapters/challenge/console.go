package challenge

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// ConsoleAcknowledger подтверждает проверку по строке из консоли (нажатию Enter)
type ConsoleAcknowledger struct {
	gate   *Gate
	input  io.Reader
	logger port.LoggerPort
}

func NewConsoleAcknowledger(gate *Gate, input io.Reader, logger port.LoggerPort) *ConsoleAcknowledger {
	return &ConsoleAcknowledger{
		gate:   gate,
		input:  input,
		logger: logger.WithFields(port.Fields{"component": "ConsoleAcknowledger"}),
	}
}

// Start читает строки до конца ввода или отмены контекста
func (c *ConsoleAcknowledger) Start(ctx context.Context) error {
	lines := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(c.input)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
		done <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			if err != nil {
				return err
			}
			c.logger.Debug("Console input closed", nil)
			<-ctx.Done()
			return nil
		case <-lines:
			c.acknowledge()
		}
	}
}

func (c *ConsoleAcknowledger) acknowledge() {
	err := c.gate.Acknowledge()
	switch {
	case err == nil:
		c.logger.Info("Challenge acknowledged from console", nil)
	case errors.Is(err, domain.ErrNoPendingChallenge):
		c.logger.Debug("Console input ignored, no pending challenge", nil)
	default:
		c.logger.Error("Failed to acknowledge challenge", err, nil)
	}
}

func (c *ConsoleAcknowledger) Close() error {
	return nil
}

package badgerstore

import (
	"fmt"
	"strings"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// badgerLogger передает внутренние логи badger в LoggerPort
type badgerLogger struct {
	logger port.LoggerPort
}

func newBadgerLogger(logger port.LoggerPort) *badgerLogger {
	if logger == nil {
		logger = contextkeys.NoopLogger()
	}
	return &badgerLogger{logger: logger.WithFields(port.Fields{"component": "badger"})}
}

func format(f string, v ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(f, v...))
}

func (b *badgerLogger) Errorf(f string, v ...interface{}) {
	b.logger.Error(format(f, v...), nil, nil)
}

func (b *badgerLogger) Warningf(f string, v ...interface{}) {
	b.logger.Warn(format(f, v...), nil)
}

// Infof понижен до debug: badger слишком подробен на старте
func (b *badgerLogger) Infof(f string, v ...interface{}) {
	b.logger.Debug(format(f, v...), nil)
}

func (b *badgerLogger) Debugf(f string, v ...interface{}) {
	b.logger.Debug(format(f, v...), nil)
}

package logger_adapter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
)

// fluentPoster описывает часть клиента fluent, которая нужна адаптеру
type fluentPoster interface {
	Post(tag string, message interface{}) error
	Close() error
}

// FluentLoggerAdapter отправляет записи в Fluent Bit. Тег: <service>.<level>
type FluentLoggerAdapter struct {
	client   fluentPoster
	tagBase  string
	fields   port.Fields
	minLevel slog.Level
}

// NewFluentLoggerAdapter принимает *fluent.Fluent (или совместимый клиент).
func NewFluentLoggerAdapter(client fluentPoster, tagBase string, minLevel slog.Leveler) (*FluentLoggerAdapter, error) {
	if client == nil {
		return nil, fmt.Errorf("fluent client cannot be nil")
	}

	level := slog.LevelInfo
	if minLevel != nil {
		level = minLevel.Level()
	}

	return &FluentLoggerAdapter{
		client:   client,
		tagBase:  tagBase,
		fields:   make(port.Fields),
		minLevel: level,
	}, nil
}

func (a *FluentLoggerAdapter) mergeFields(fields port.Fields) port.Fields {
	merged := make(port.Fields, len(a.fields)+len(fields)+3)
	for k, v := range a.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func (a *FluentLoggerAdapter) tag(level string) string {
	if a.tagBase == "" {
		return level
	}
	return a.tagBase + "." + level
}

func (a *FluentLoggerAdapter) post(level slog.Level, name string, msg string, data port.Fields) {
	if level < a.minLevel {
		return
	}
	data["level"] = name
	data["message"] = msg
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	// ошибки доставки логов не пробрасываем
	_ = a.client.Post(a.tag(name), data)
}

func (a *FluentLoggerAdapter) Info(msg string, fields port.Fields) {
	a.post(slog.LevelInfo, "info", msg, a.mergeFields(fields))
}

func (a *FluentLoggerAdapter) Warn(msg string, fields port.Fields) {
	a.post(slog.LevelWarn, "warn", msg, a.mergeFields(fields))
}

func (a *FluentLoggerAdapter) Error(msg string, err error, fields port.Fields) {
	data := a.mergeFields(fields)
	if err != nil {
		data["error"] = err.Error()
	}
	a.post(slog.LevelError, "error", msg, data)
}

func (a *FluentLoggerAdapter) Debug(msg string, fields port.Fields) {
	a.post(slog.LevelDebug, "debug", msg, a.mergeFields(fields))
}

// WithFields создает новый логгер с расширенным контекстом
func (a *FluentLoggerAdapter) WithFields(fields port.Fields) port.LoggerPort {
	return &FluentLoggerAdapter{
		client:   a.client,
		tagBase:  a.tagBase,
		fields:   a.mergeFields(fields),
		minLevel: a.minLevel,
	}
}

// Close сбрасывает буфер и закрывает соединение
func (a *FluentLoggerAdapter) Close() error {
	return a.client.Close()
}

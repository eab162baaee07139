package logger_adapter

import "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

// KVBridge подключает LoggerPort к библиотекам, которые пишут лог парами ключ-значение
// (клиенты RabbitMQ из pkg, cron). Подходит под rabbitmq_common.Logger и cron.Logger.
type KVBridge struct {
	logger      port.LoggerPort
	infoAsDebug bool
}

func NewKVBridge(logger port.LoggerPort) *KVBridge {
	return &KVBridge{logger: logger}
}

// Quiet возвращает мост, который пишет info-сообщения на уровне debug
func (b *KVBridge) Quiet() *KVBridge {
	return &KVBridge{logger: b.logger, infoAsDebug: true}
}

// KVFields собирает поля из пар. Ключ, не являющийся строкой, пропускается вместе со значением,
// непарный хвост попадает в поле "extra".
func KVFields(keysAndValues ...interface{}) port.Fields {
	fields := make(port.Fields, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			fields["extra"] = keysAndValues[i]
			break
		}
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

func (b *KVBridge) Debug(msg string, keysAndValues ...interface{}) {
	b.logger.Debug(msg, KVFields(keysAndValues...))
}

func (b *KVBridge) Info(msg string, keysAndValues ...interface{}) {
	if b.infoAsDebug {
		b.logger.Debug(msg, KVFields(keysAndValues...))
		return
	}
	b.logger.Info(msg, KVFields(keysAndValues...))
}

func (b *KVBridge) Warn(msg string, keysAndValues ...interface{}) {
	b.logger.Warn(msg, KVFields(keysAndValues...))
}

func (b *KVBridge) Error(err error, msg string, keysAndValues ...interface{}) {
	b.logger.Error(msg, err, KVFields(keysAndValues...))
}

package telegram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand   = "/start"
	filtersButton  = "Настрой фильтры для поиска жилья"
	welcomeMessage = "Выберите категорию и настройте фильтры:"
	retryDelay     = 5 * time.Second
)

// StartBot слушает обновления через long polling. Отвечает только на /start кнопкой со ссылкой на фильтры.
type StartBot struct {
	client      *Client
	publicURL   string
	pollTimeout time.Duration
	logger      port.LoggerPort
	tokens      port.ChatLinkTokenPort // без него ссылка не подписывается

	offset int
}

func NewStartBot(client *Client, publicURL string, pollTimeout time.Duration, logger port.LoggerPort) *StartBot {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &StartBot{
		client:      client,
		publicURL:   publicURL,
		pollTimeout: pollTimeout,
		logger:      logger.WithFields(port.Fields{"component": "TelegramBot"}),
	}
}

// WithLinkTokens включает подпись ссылок на фильтры
func (b *StartBot) WithLinkTokens(tokens port.ChatLinkTokenPort) *StartBot {
	b.tokens = tokens
	return b
}

// Start блокируется до отмены контекста
func (b *StartBot) Start(ctx context.Context) error {
	b.logger.Info("Telegram bot polling started", port.Fields{"bot": b.client.BotName()})

	for {
		if ctx.Err() != nil {
			b.logger.Info("Telegram bot polling stopped", nil)
			return nil
		}

		updates, err := b.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.logger.Error("Failed to get updates", err, nil)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			b.handle(ctx, u)
		}
	}
}

func (b *StartBot) poll(ctx context.Context) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(b.offset)
	cfg.Timeout = int(b.pollTimeout.Seconds())
	cfg.AllowedUpdates = []string{"message"}

	return b.client.getUpdates(ctx, cfg)
}

func isStartCommand(msg *tgbotapi.Message) bool {
	if msg == nil || msg.Chat == nil {
		return false
	}
	if msg.IsCommand() {
		return msg.Command() == strings.TrimPrefix(startCommand, "/")
	}
	return strings.TrimSpace(msg.Text) == startCommand
}

func (b *StartBot) handle(ctx context.Context, u tgbotapi.Update) {
	if !isStartCommand(u.Message) {
		return
	}

	chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
	if err := b.sendFiltersLink(ctx, u.Message.Chat.ID); err != nil {
		b.logger.Error("Failed to answer /start", err, port.Fields{"chat_id": chatID})
		return
	}
	b.logger.Info("Filters link sent", port.Fields{"chat_id": chatID})
}

// FiltersURL строит ссылку на веб-интерфейс фильтров для пользователя
func (b *StartBot) FiltersURL(ctx context.Context, chatID string) (string, error) {
	query := url.Values{"user_id": {chatID}}
	if b.tokens != nil {
		token, err := b.tokens.Issue(ctx, chatID)
		if err != nil {
			return "", err
		}
		query.Set("token", token)
	}
	return b.publicURL + "?" + query.Encode(), nil
}

func (b *StartBot) sendFiltersLink(ctx context.Context, chatID int64) error {
	link, err := b.FiltersURL(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		return fmt.Errorf("failed to build filters link: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, welcomeMessage)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(filtersButton, link)),
	)
	return b.client.send(ctx, msg)
}

func (b *StartBot) Close() error {
	return nil
}

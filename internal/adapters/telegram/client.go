package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client – это общий для бота и уведомлений клиент Bot API
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient создает клиента и проверяет токен запросом getMe.
// requestTimeout должен быть больше таймаута long polling.
func NewClient(baseURL, token string, requestTimeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/bot%s/%s"

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: requestTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to create bot api: %w", err)
	}
	return &Client{api: api}, nil
}

// BotName возвращает имя бота из ответа getMe
func (c *Client) BotName() string {
	return c.api.Self.UserName
}

// send ждет ответа Bot API, пока жив контекст. Сам запрос библиотека контекстом не отменяет.
func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) error {
	done := make(chan error, 1)
	go func() {
		_, err := c.api.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("telegram: send aborted: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram: sendMessage failed: %w", err)
		}
		return nil
	}
}

func (c *Client) getUpdates(ctx context.Context, cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	type pollResult struct {
		updates []tgbotapi.Update
		err     error
	}
	done := make(chan pollResult, 1)
	go func() {
		updates, err := c.api.GetUpdates(cfg)
		done <- pollResult{updates: updates, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("telegram: getUpdates failed: %w", r.err)
		}
		return r.updates, nil
	}
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat id %q", chatID)
	}
	return id, nil
}

package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendTimeout = 15 * time.Second

const noResultsText = "🔍 По вашим фильтрам ничего не найдено.\n\nПопробуйте изменить параметры поиска."

// NotifierAdapter отправляет подборку объявлений в чат пользователя
type NotifierAdapter struct {
	client *Client
}

func NewNotifierAdapter(client *Client) *NotifierAdapter {
	return &NotifierAdapter{client: client}
}

func (a *NotifierAdapter) SendListings(ctx context.Context, chatID string, records []domain.ListingRecord) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "TelegramNotifier",
		"chat_id":   chatID,
	})

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(id, FormatListings(records))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if err := a.client.send(sendCtx, msg); err != nil {
		return err
	}

	logger.Debug("Listings message sent", port.Fields{"count": len(records)})
	return nil
}

// FormatListings собирает текст сообщения; в сообщение попадают первые пять записей
func FormatListings(records []domain.ListingRecord) string {
	if len(records) == 0 {
		return noResultsText
	}
	if len(records) > constants.NotifyListingsLimit {
		records = records[:constants.NotifyListingsLimit]
	}

	var b strings.Builder
	b.WriteString("🏡 *Найдены подходящие предложения:*\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "📍 *Адрес:* %s\n", r.Address)
		fmt.Fprintf(&b, "💵 *Цена:* %s\n", r.Price)
		fmt.Fprintf(&b, "🛏 *Комнат:* %s\n", r.Rooms)
		fmt.Fprintf(&b, "📏 *Площадь:* %s\n", r.Area)
		if r.HasLink() {
			fmt.Fprintf(&b, "🔗 [Ссылка на объявление](%s)\n", r.Link)
		}
		b.WriteString("\n")
	}
	return b.String()
}

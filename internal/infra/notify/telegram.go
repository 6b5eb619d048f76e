// internal/infra/notify/telegram.go
package notify

import (
	"context"

	"birthday_notification_service/internal/domain/notify"

	"gopkg.in/telebot.v3"
)

// TelegramNotifier delivers birthday messages to a configured Telegram
// chat via the gopkg.in/telebot.v3 library. Interchangeable with the
// webhook notifier; selected with NOTIFIER=telegram.
type TelegramNotifier struct {
	bot    *telebot.Bot
	chatID int64
}

func NewTelegramNotifier(b *telebot.Bot, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: b, chatID: chatID}
}

func (n *TelegramNotifier) Send(_ context.Context, firstName, lastName string) error {
	recipient := &telebot.Chat{ID: n.chatID}
	_, err := n.bot.Send(recipient, notify.Message(firstName, lastName), &telebot.SendOptions{})
	return err
}

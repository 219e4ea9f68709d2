package notify

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Sender delivers one plain-text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// TelegramSender sends through a telebot handle. The bot is send-only:
// no poller is attached and no updates are consumed.
type TelegramSender struct {
	bot *tele.Bot
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: b}, nil
}

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	// telebot calls are not context-aware; check ctx up front and rely
	// on its internal HTTP timeout for the call itself.
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(tele.ChatID(chatID), text)
	return err
}

package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSink sends notifications to a single Telegram chat.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink authorizes against the bot API with the given token.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramSink{api: api, chatID: chatID}, nil
}

func (s *TelegramSink) Show(_ context.Context, n Notification) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b>", html.EscapeString(n.Title)))
	if n.Body != "" {
		sb.WriteString("\n")
		sb.WriteString(html.EscapeString(n.Body))
	}

	msg := tgbotapi.NewMessage(s.chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(msg); err != nil {
		log.Printf("telegram send: %v", err)
	}
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"financeflow/internal/config"
	"financeflow/internal/domain/ports/adapter"
)

var _ adapter.ChatSender = (*RealTelegramSender)(nil)

// RealTelegramSender delivers replies through the Bot API sendMessage call.
type RealTelegramSender struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewRealTelegramSender(cfg *config.BotConfig, logger *zerolog.Logger) (*RealTelegramSender, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("bot token is empty")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	l := logger.With().Str("component", "telegram").Str("bot", bot.Self.UserName).Logger()
	return &RealTelegramSender{bot: bot, log: &l}, nil
}

// SendMessage sends HTML-formatted text. Callers escape user-provided values.
func (s *RealTelegramSender) SendMessage(ctx context.Context, chatID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("chat id %q: %w", chatID, err)
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		s.log.Debug().Err(err).Str("chat_id", chatID).Msg("sendMessage failed")
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"financeflow/internal/domain/ports/adapter"
)

var _ adapter.ChatSender = (*NoopSender)(nil)

// NoopSender logs replies instead of sending them. Used in dev mode without a token.
type NoopSender struct {
	log *zerolog.Logger
}

func NewNoopSender(logger *zerolog.Logger) *NoopSender {
	return &NoopSender{log: logger}
}

func (n *NoopSender) SendMessage(ctx context.Context, chatID string, text string) error {
	n.log.Info().Str("chat_id", chatID).Str("text", text).Msg("[noop-telegram] reply")
	return nil
}

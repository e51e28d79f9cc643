// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// ChatSender delivers a reply to a chat. Implementations are best effort; callers log failures.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}

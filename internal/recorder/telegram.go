package recorder

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"image-verify/internal/model"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a short summary of every verification into a chat.
type Telegram struct {
	api    sender
	chatID int64
}

// NewTelegram authenticates the bot token against the Telegram API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

func (r *Telegram) Name() string { return "telegram" }

func (r *Telegram) Record(ctx context.Context, rec model.VerificationRecord) error {
	return r.Send(ctx, FormatMessage(rec))
}

// Send posts plain text to the configured chat.
func (r *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := r.api.Send(msg)
	return err
}

// FormatMessage renders the chat text for a record.
func FormatMessage(rec model.VerificationRecord) string {
	verdict := "❌ no match"
	if rec.MatchResult {
		verdict = "✅ match"
	}
	hash := rec.ContentHash
	if len(hash) > 16 {
		hash = hash[:16] + "…"
	}
	return fmt.Sprintf("%s %.2f%%\nfile: %s\nsha256: %s\nat: %s",
		verdict, rec.SimilarityPercentage, rec.Filename, hash, rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
}

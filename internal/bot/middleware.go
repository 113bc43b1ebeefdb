package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"

	"rsvpbot/internal/services"
)

// CommandHandlerFunc handles one command message.
type CommandHandlerFunc func(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message)

func (b *Bot) sendAdminDeniedMessage(log *zap.Logger, chatID int64) {
	b.sendMessage(log, chatID, "You don't have permission to run this command. Only chat administrators can do this.")
}

// AdminCheckMiddleware wraps a command handler with admin verification
func (b *Bot) AdminCheckMiddleware(handler CommandHandlerFunc) CommandHandlerFunc {
	return func(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
		ok, err := b.isAdmin(msg.Chat.ID, int64(msg.From.ID))
		if err != nil {
			log.Warn("Failed to fetch administrators", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
			b.sendMessage(log, msg.Chat.ID, "Could not verify administrator rights in this chat.")
			return
		}
		if !ok {
			log.Info("Rejected administrator command",
				zap.String("command", msg.Command()),
				zap.Int("user_id", msg.From.ID),
				zap.Error(services.ErrPermissionDenied))
			b.sendAdminDeniedMessage(log, msg.Chat.ID)
			return
		}
		handler(ctx, log, msg)
	}
}

func (b *Bot) isAdmin(chatID, userID int64) (bool, error) {
	admins, err := b.platform.ListAdministrators(chatID)
	if err != nil {
		return false, err
	}
	for _, id := range admins {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

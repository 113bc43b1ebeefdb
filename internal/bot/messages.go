package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
	"rsvpbot/internal/services"
)

const attendFirstNotice = "Please choose Go, Can't go or Attend but late before leaving a comment."

// handleEditedMessage updates an event when its /event command is edited.
func (b *Bot) handleEditedMessage(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	if !msg.IsCommand() || msg.Command() != "event" || !b.addressedToMe(msg) {
		return
	}
	log = log.With(zap.Int64("chat_id", msg.Chat.ID), zap.Int("message_id", msg.MessageID))

	fields, err := services.ParseEventFields(msg.CommandArguments())
	if err != nil {
		b.replyValidation(log, msg, err)
		return
	}

	ev, err := b.events.EditByOrigin(ctx, msg.Chat.ID, msg.MessageID, fields)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			b.sendMessage(log, msg.Chat.ID, "Event not found.")
			return
		}
		log.Error("Failed to edit event", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}
	log.Info("Event edited", zap.Int64("event_id", ev.ID))
	b.refresh(ctx, log, ev)
}

// handleMessage treats a text reply to an announcement as a comment of the
// replying participant.
func (b *Bot) handleMessage(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	reply := msg.ReplyToMessage
	if reply == nil || msg.Text == "" {
		return
	}
	if b.opts.UserName != "" && (reply.From == nil || reply.From.UserName != b.opts.UserName) {
		return
	}

	chatID := msg.Chat.ID
	userID := int64(msg.From.ID)
	log = log.With(zap.Int64("chat_id", chatID), zap.Int64("user_id", userID))

	ev, err := b.events.Comment(ctx, chatID, reply.MessageID, userID, msg.Text)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return
	case errors.Is(err, services.ErrNotParticipant):
		b.sendTransientNotice(log, chatID, msg.MessageID, attendFirstNotice)
		return
	case err != nil:
		log.Error("Failed to store comment", zap.Error(err))
		return
	}

	if err := b.platform.DeleteMessage(chatID, msg.MessageID); err != nil {
		log.Warn("Failed to delete comment message", zap.Int("message_id", msg.MessageID), zap.Error(err))
	}
	b.refresh(ctx, log, ev)
}

package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

var answerTexts = map[models.Bucket]string{
	models.Go:     "You're going!",
	models.CantGo: "Sorry you can't make it.",
	models.Late:   "See you there, even if late!",
}

// handleCallbackQuery handles RSVP button presses.
func (b *Bot) handleCallbackQuery(ctx context.Context, log *zap.Logger, cq *tgbotapi.CallbackQuery) {
	action, err := models.ParseAction(cq.Data)
	if err != nil {
		log.Warn("Unknown callback data", zap.String("data", cq.Data), zap.Error(err))
		b.answerCallback(log, cq.ID, "Unknown action")
		return
	}

	userID := int64(cq.From.ID)
	log = log.With(
		zap.Int64("chat_id", action.ChatID),
		zap.Int64("event_id", action.EventID),
		zap.Int64("user_id", userID))

	ev, err := b.events.Respond(ctx, action.ChatID, action.EventID, userID, action.Bucket)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Info("RSVP for unknown event")
			b.answerCallback(log, cq.ID, "Event not found.")
			return
		}
		log.Error("Failed to record RSVP", zap.Error(err))
		b.answerCallback(log, cq.ID, "Something went wrong, please try again.")
		return
	}

	b.refresh(ctx, log, ev)
	b.answerCallback(log, cq.ID, answerTexts[action.Bucket])
}

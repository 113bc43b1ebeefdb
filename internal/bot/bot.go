// Package bot routes Telegram updates to the event and group services.
package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rsvpbot/internal/chat"
	"rsvpbot/internal/models"
	"rsvpbot/internal/render"
	"rsvpbot/internal/services"
)

// Options configure a Bot.
type Options struct {
	// UserName is the bot's own username. Commands addressed to other bots
	// and replies to other users' messages are ignored when it is set.
	UserName string
	// NoticeTTL is how long transient notices stay in the chat.
	NoticeTTL time.Duration
}

// Bot dispatches updates. Each update is handled independently.
type Bot struct {
	platform  chat.Platform
	events    *services.EventService
	groups    *services.GroupService
	publisher *render.Publisher
	log       *zap.Logger
	opts      Options
	wg        sync.WaitGroup
}

// New creates a new bot
func New(platform chat.Platform, events *services.EventService, groups *services.GroupService, publisher *render.Publisher, log *zap.Logger, opts Options) *Bot {
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 10 * time.Second
	}
	return &Bot{
		platform:  platform,
		events:    events,
		groups:    groups,
		publisher: publisher,
		log:       log,
		opts:      opts,
	}
}

// Run handles updates concurrently until ctx is done or updates is closed,
// then waits for the handlers still running.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer b.wg.Wait()

	// In-flight handlers finish their writes even after shutdown starts.
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(handlerCtx, update)
			}()
		}
	}
}

// HandleUpdate routes a single update. It never panics.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := b.log.With(zap.Int("update_id", update.UpdateID), zap.String("trace_id", uuid.NewString()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic while handling update", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		if update.CallbackQuery.From == nil {
			return
		}
		b.handleCallbackQuery(ctx, log, update.CallbackQuery)
	case update.EditedMessage != nil:
		if !validMessage(update.EditedMessage) {
			return
		}
		b.handleEditedMessage(ctx, log, update.EditedMessage)
	case update.Message != nil:
		if !validMessage(update.Message) {
			return
		}
		if update.Message.IsCommand() {
			b.handleCommand(ctx, log, update.Message)
		} else {
			b.handleMessage(ctx, log, update.Message)
		}
	}
}

func validMessage(msg *tgbotapi.Message) bool {
	return msg.From != nil && msg.Chat != nil
}

// addressedToMe reports whether a command is meant for this bot: either
// without @suffix or with this bot's username.
func (b *Bot) addressedToMe(msg *tgbotapi.Message) bool {
	cmd := msg.CommandWithAt()
	at := strings.Index(cmd, "@")
	if at < 0 || b.opts.UserName == "" {
		return true
	}
	return strings.EqualFold(cmd[at+1:], b.opts.UserName)
}

// sendMessage sends a plain text message to the given chat.
func (b *Bot) sendMessage(log *zap.Logger, chatID int64, text string) {
	if _, err := b.platform.SendMessage(chatID, text, chat.MessageOptions{}); err != nil {
		log.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendHTML sends an HTML formatted message without link previews.
func (b *Bot) sendHTML(log *zap.Logger, chatID int64, text string) {
	opts := chat.MessageOptions{ParseMode: tgbotapi.ModeHTML, DisableWebPagePreview: true}
	if _, err := b.platform.SendMessage(chatID, text, opts); err != nil {
		log.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendTransientNotice replies to replyTo and deletes the reply after
// NoticeTTL. A failed delete means the notice is already gone.
func (b *Bot) sendTransientNotice(log *zap.Logger, chatID int64, replyTo int, text string) {
	noticeID, err := b.platform.SendMessage(chatID, text, chat.MessageOptions{ReplyToMessageID: replyTo})
	if err != nil {
		log.Warn("Failed to send notice", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	time.AfterFunc(b.opts.NoticeTTL, func() {
		if err := b.platform.DeleteMessage(chatID, noticeID); err != nil {
			log.Debug("Notice already gone", zap.Int("message_id", noticeID), zap.Error(err))
		}
	})
}

func (b *Bot) answerCallback(log *zap.Logger, callbackID, text string) {
	if err := b.platform.AnswerCallback(callbackID, text); err != nil {
		log.Warn("Failed to answer callback", zap.Error(err))
	}
}

// refresh re-renders the announcement of ev from its latest stored state.
// Failures are logged; the change is already saved at this point.
func (b *Bot) refresh(ctx context.Context, log *zap.Logger, ev *models.Event) {
	if err := b.events.Publish(ctx, ev.ChatID, ev.ID, b.publisher.Refresh); err != nil {
		log.Error("Failed to refresh announcement",
			zap.Int64("chat_id", ev.ChatID), zap.Int64("event_id", ev.ID), zap.Error(err))
	}
}

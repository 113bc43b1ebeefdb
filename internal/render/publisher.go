package render

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rsvpbot/internal/chat"
	"rsvpbot/internal/models"
)

// ErrNotAnnounced is returned by Refresh for an event without announcement.
var ErrNotAnnounced = errors.New("event has no announcement")

// Client is the part of the chat platform the publisher needs.
type Client interface {
	SendMessage(chatID int64, text string, opts chat.MessageOptions) (int, error)
	EditMessageText(chatID int64, messageID int, text string, opts chat.MessageOptions) error
	PinMessage(chatID int64, messageID int) error
	ResolveDisplayName(chatID, userID int64) (string, error)
}

// Publisher resolves participant names and delivers boards.
type Publisher struct {
	client      Client
	log         *zap.Logger
	concurrency int
}

// NewPublisher creates a publisher that resolves at most concurrency names
// at a time.
func NewPublisher(client Client, log *zap.Logger, concurrency int) *Publisher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Publisher{client: client, log: log, concurrency: concurrency}
}

// ResolveNames looks up display names for userIDs. A failed lookup yields
// UnknownName for that user only.
func (p *Publisher) ResolveNames(chatID int64, userIDs []int64) map[int64]string {
	resolved := make([]string, len(userIDs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, id := range userIDs {
		g.Go(func() error {
			name, err := p.client.ResolveDisplayName(chatID, id)
			if err != nil || name == "" {
				p.log.Warn("Failed to resolve display name",
					zap.Int64("chat_id", chatID), zap.Int64("user_id", id), zap.Error(err))
				name = UnknownName
			}
			resolved[i] = name
			return nil
		})
	}
	_ = g.Wait()

	names := make(map[int64]string, len(userIDs))
	for i, id := range userIDs {
		names[id] = resolved[i]
	}
	return names
}

// Board renders ev with freshly resolved names.
func (p *Publisher) Board(ev *models.Event) Board {
	return Render(ev, p.ResolveNames(ev.ChatID, ev.Participants.All()))
}

// Announce sends the first announcement of ev, pins it and returns its
// message id. A failed pin is logged only.
func (p *Publisher) Announce(ev *models.Event) (int, error) {
	board := p.Board(ev)
	messageID, err := p.client.SendMessage(ev.ChatID, board.Text, boardOptions(&board))
	if err != nil {
		return 0, err
	}
	if err := p.client.PinMessage(ev.ChatID, messageID); err != nil {
		p.log.Warn("Failed to pin announcement",
			zap.Int64("chat_id", ev.ChatID), zap.Int("message_id", messageID), zap.Error(err))
	}
	return messageID, nil
}

// Refresh edits the announcement of ev in place.
func (p *Publisher) Refresh(ev *models.Event) error {
	if ev.PostMessageID == 0 {
		return ErrNotAnnounced
	}
	board := p.Board(ev)
	return p.client.EditMessageText(ev.ChatID, ev.PostMessageID, board.Text, boardOptions(&board))
}

func boardOptions(board *Board) chat.MessageOptions {
	return chat.MessageOptions{
		ParseMode:             tgbotapi.ModeHTML,
		Keyboard:              &board.Keyboard,
		DisableWebPagePreview: true,
	}
}

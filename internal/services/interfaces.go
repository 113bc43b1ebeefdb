package services

import (
	"context"

	"rsvpbot/internal/chat"
	"rsvpbot/internal/models"
)

// EventRepository defines the event persistence used by EventService.
type EventRepository interface {
	InsertEvent(ctx context.Context, ev *models.Event) error
	GetEvent(ctx context.Context, chatID, eventID int64) (*models.Event, error)
	ListEvents(ctx context.Context, chatID int64) ([]*models.Event, error)
	SaveEvent(ctx context.Context, ev *models.Event) error
}

// GroupRepository defines the membership persistence used by GroupService.
type GroupRepository interface {
	LoadGroup(ctx context.Context, chatID int64) (*models.Group, error)
	SaveGroup(ctx context.Context, g *models.Group) error
}

// Notifier delivers broadcasts and resolves the chat metadata for links.
type Notifier interface {
	chat.Messenger
	GetChat(chatID int64) (chat.Info, error)
}

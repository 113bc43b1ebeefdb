package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

// EventUsage is the expected argument format of the create command.
const EventUsage = "Usage: /event Title | Description | Time"

// maxIDAttempts bounds how many consecutive ids CreateEvent tries.
const maxIDAttempts = 16

// EventService owns every change to stored events. Each change is a
// load-mutate-save under a per-event lock, so the stored record is always
// written before the caller re-renders the announcement.
type EventService struct {
	repo  EventRepository
	log   *zap.Logger
	locks keyedMutex
	now   func() time.Time
}

// NewEventService creates a new event service
func NewEventService(repo EventRepository, log *zap.Logger) *EventService {
	return &EventService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// ParseEventFields parses "title | description | time". All three parts are
// required.
func ParseEventFields(args string) (models.EventFields, error) {
	parts := strings.SplitN(args, "|", 3)
	if len(parts) < 3 {
		return models.EventFields{}, &ValidationError{Reason: "expected three parts separated by |", Usage: EventUsage}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	names := [...]string{"title", "description", "time"}
	for i, p := range parts {
		if p == "" {
			return models.EventFields{}, &ValidationError{Reason: names[i] + " is empty", Usage: EventUsage}
		}
	}
	return models.EventFields{Title: parts[0], Description: parts[1], Time: parts[2]}, nil
}

// CreateEvent stores a new event with no participants. Ids are the creation
// time in milliseconds; a taken id is bumped until the store accepts it.
func (s *EventService) CreateEvent(ctx context.Context, chatID int64, originalMessageID int, fields models.EventFields) (*models.Event, error) {
	base := s.now().UnixMilli()
	for attempt := int64(0); attempt < maxIDAttempts; attempt++ {
		ev := models.NewEvent(chatID, base+attempt, originalMessageID, fields)
		err := s.repo.InsertEvent(ctx, ev)
		if err == nil {
			s.log.Info("Event created",
				zap.Int64("chat_id", chatID),
				zap.Int64("event_id", ev.ID),
				zap.String("title", ev.Title))
			return ev, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("insert event: %w", err)
		}
	}
	return nil, fmt.Errorf("allocate event id in chat %d: %w", chatID, models.ErrConflict)
}

// SetAnnouncement records the id of the bot message that displays the event.
func (s *EventService) SetAnnouncement(ctx context.Context, chatID, eventID int64, postMessageID int) (*models.Event, error) {
	return s.update(ctx, chatID, eventID, func(ev *models.Event) error {
		ev.PostMessageID = postMessageID
		return nil
	})
}

// Respond moves userID into bucket b. Answering with the bucket already held
// still saves, so the caller re-renders an identical board.
func (s *EventService) Respond(ctx context.Context, chatID, eventID, userID int64, b models.Bucket) (*models.Event, error) {
	ev, err := s.update(ctx, chatID, eventID, func(ev *models.Event) error {
		ev.Respond(userID, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("RSVP recorded",
		zap.Int64("chat_id", chatID),
		zap.Int64("event_id", eventID),
		zap.Int64("user_id", userID),
		zap.Stringer("bucket", b))
	return ev, nil
}

// EditByOrigin rewrites title, description and time of the event created by
// message originalMessageID. Participants and comments are kept.
func (s *EventService) EditByOrigin(ctx context.Context, chatID int64, originalMessageID int, fields models.EventFields) (*models.Event, error) {
	found, err := s.find(ctx, chatID, func(ev *models.Event) bool {
		return ev.OriginalMessageID == originalMessageID
	})
	if err != nil {
		return nil, err
	}
	return s.update(ctx, chatID, found.ID, func(ev *models.Event) error {
		ev.SetFields(fields)
		return nil
	})
}

// Comment attaches text to the answer of userID on the event announced by
// postMessageID, replacing an earlier comment. It returns ErrNotParticipant
// if userID has not answered yet.
func (s *EventService) Comment(ctx context.Context, chatID int64, postMessageID int, userID int64, text string) (*models.Event, error) {
	found, err := s.FindByPost(ctx, chatID, postMessageID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, chatID, found.ID, func(ev *models.Event) error {
		if !ev.IsParticipant(userID) {
			return ErrNotParticipant
		}
		ev.SetComment(userID, text)
		return nil
	})
}

// FindByPost returns the event whose announcement is postMessageID.
func (s *EventService) FindByPost(ctx context.Context, chatID int64, postMessageID int) (*models.Event, error) {
	return s.find(ctx, chatID, func(ev *models.Event) bool {
		return ev.PostMessageID != 0 && ev.PostMessageID == postMessageID
	})
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, chatID, eventID int64) (*models.Event, error) {
	ev, err := s.repo.GetEvent(ctx, chatID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", eventID, err)
	}
	return ev, nil
}

// List returns all events of a chat ordered by id.
func (s *EventService) List(ctx context.Context, chatID int64) ([]*models.Event, error) {
	events, err := s.repo.ListEvents(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *EventService) find(ctx context.Context, chatID int64, match func(*models.Event) bool) (*models.Event, error) {
	events, err := s.List(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if match(ev) {
			return ev, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *EventService) update(ctx context.Context, chatID, eventID int64, mutate func(*models.Event) error) (*models.Event, error) {
	unlock := s.locks.Lock(eventKey(chatID, eventID))
	defer unlock()

	ev, err := s.repo.GetEvent(ctx, chatID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", eventID, err)
	}
	if err := mutate(ev); err != nil {
		return nil, err
	}
	if err := s.repo.SaveEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("save event %d: %w", eventID, err)
	}
	return ev, nil
}

// Publish reloads the event and hands it to publish under the event's lock.
// Announcements are therefore edited in the order changes were saved, and
// each edit shows the latest stored state.
func (s *EventService) Publish(ctx context.Context, chatID, eventID int64, publish func(*models.Event) error) error {
	unlock := s.locks.Lock(eventKey(chatID, eventID))
	defer unlock()

	ev, err := s.repo.GetEvent(ctx, chatID, eventID)
	if err != nil {
		return fmt.Errorf("get event %d: %w", eventID, err)
	}
	return publish(ev)
}

func eventKey(chatID, eventID int64) string {
	return fmt.Sprintf("%d/%d", chatID, eventID)
}

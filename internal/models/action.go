package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is an RSVP button press decoded from callback data.
type Action struct {
	Bucket  Bucket
	ChatID  int64
	EventID int64
}

// Encode returns the callback data for the action: bucket_chat_event.
func (a Action) Encode() string {
	return fmt.Sprintf("%s_%d_%d", a.Bucket, a.ChatID, a.EventID)
}

// ParseAction decodes callback data produced by Action.Encode.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 {
		return Action{}, fmt.Errorf("malformed action %q", data)
	}
	bucket, err := ParseBucket(parts[0])
	if err != nil {
		return Action{}, err
	}
	chatID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("malformed chat in action %q: %w", data, err)
	}
	eventID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("malformed event in action %q: %w", data, err)
	}
	return Action{Bucket: bucket, ChatID: chatID, EventID: eventID}, nil
}

package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Bucket is one of the three mutually exclusive RSVP answers.
type Bucket int

const (
	Go Bucket = iota
	CantGo
	Late
)

// Buckets lists every bucket in display order.
var Buckets = [...]Bucket{Go, CantGo, Late}

// String returns the token used for the bucket inside callback data.
func (b Bucket) String() string {
	switch b {
	case Go:
		return "go"
	case CantGo:
		return "cantgo"
	case Late:
		return "late"
	}
	return "bucket(" + strconv.Itoa(int(b)) + ")"
}

// ParseBucket is the inverse of Bucket.String.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets {
		if b.String() == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown bucket %q", s)
}

// EventFields are the user supplied parts of an event.
type EventFields struct {
	Title       string
	Description string
	Time        string
}

// Event represents an event record.
type Event struct {
	ID                int64             `json:"id"`                      // ID is unique within the chat.
	ChatID            int64             `json:"chatId"`                  // ChatID is the chat the event belongs to.
	Title             string            `json:"title"`                   // Title is the first line of the announcement.
	Description       string            `json:"description"`             // Description is free text shown under the title.
	Time              string            `json:"time"`                    // Time is free text, not parsed.
	OriginalMessageID int               `json:"originalMessageId"`       // OriginalMessageID is the command message that created the event.
	PostMessageID     int               `json:"postMessageId,omitempty"` // PostMessageID is the bot announcement kept up to date.
	Participants      Participants      `json:"participants"`            // Participants holds RSVP answers.
	Comments          map[string]string `json:"comments"`                // Comments maps user id (as text) to comment.
	CreatedAt         time.Time         `json:"createdAt"`
}

// NewEvent returns an event with no participants and no comments.
func NewEvent(chatID, id int64, originalMessageID int, fields EventFields) *Event {
	ev := &Event{
		ID:                id,
		ChatID:            chatID,
		OriginalMessageID: originalMessageID,
		Comments:          map[string]string{},
		CreatedAt:         time.Now().UTC(),
	}
	ev.SetFields(fields)
	return ev
}

// SetFields overwrites title, description and time. Participants and
// comments are left alone.
func (e *Event) SetFields(f EventFields) {
	e.Title = f.Title
	e.Description = f.Description
	e.Time = f.Time
}

// Fields returns the user supplied parts of the event.
func (e *Event) Fields() EventFields {
	return EventFields{Title: e.Title, Description: e.Description, Time: e.Time}
}

// Respond moves userID into bucket b.
func (e *Event) Respond(userID int64, b Bucket) {
	e.Participants = e.Participants.Choose(userID, b)
}

// IsParticipant reports whether userID has answered in any bucket.
func (e *Event) IsParticipant(userID int64) bool {
	_, ok := e.Participants.BucketOf(userID)
	return ok
}

// SetComment stores text as the comment of userID, replacing any previous one.
func (e *Event) SetComment(userID int64, text string) {
	if e.Comments == nil {
		e.Comments = map[string]string{}
	}
	e.Comments[CommentKey(userID)] = text
}

// Comment returns the comment of userID.
func (e *Event) Comment(userID int64) (string, bool) {
	c, ok := e.Comments[CommentKey(userID)]
	return c, ok
}

// CommentKey is the key under which a user's comment is stored.
func CommentKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

type participant struct {
	userID int64
	bucket Bucket
}

// Participants maps each user to exactly one bucket. Entries are kept in
// answer order, so the members of a bucket come out in the order they
// joined it.
type Participants struct {
	entries []participant
}

// Choose returns a copy of p in which userID is the last member of bucket b.
// p itself is not modified.
func (p Participants) Choose(userID int64, b Bucket) Participants {
	next := make([]participant, 0, len(p.entries)+1)
	for _, e := range p.entries {
		if e.userID != userID {
			next = append(next, e)
		}
	}
	next = append(next, participant{userID: userID, bucket: b})
	return Participants{entries: next}
}

// BucketOf returns the bucket userID answered with.
func (p Participants) BucketOf(userID int64) (Bucket, bool) {
	for _, e := range p.entries {
		if e.userID == userID {
			return e.bucket, true
		}
	}
	return 0, false
}

// Members returns the users in bucket b in answer order.
func (p Participants) Members(b Bucket) []int64 {
	out := []int64{}
	for _, e := range p.entries {
		if e.bucket == b {
			out = append(out, e.userID)
		}
	}
	return out
}

// All returns every participant, bucket by bucket in display order.
func (p Participants) All() []int64 {
	out := make([]int64, 0, len(p.entries))
	for _, b := range Buckets {
		out = append(out, p.Members(b)...)
	}
	return out
}

// Len returns the number of participants.
func (p Participants) Len() int {
	return len(p.entries)
}

type participantsJSON struct {
	Go     []int64 `json:"go"`
	CantGo []int64 `json:"cantGo"`
	Late   []int64 `json:"late"`
}

func (p Participants) MarshalJSON() ([]byte, error) {
	return json.Marshal(participantsJSON{
		Go:     p.Members(Go),
		CantGo: p.Members(CantGo),
		Late:   p.Members(Late),
	})
}

// UnmarshalJSON rebuilds participants from the three stored sequences. A user
// listed in more than one sequence keeps the first bucket it appears in.
func (p *Participants) UnmarshalJSON(data []byte) error {
	var raw participantsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	seen := make(map[int64]bool)
	p.entries = nil
	lists := [...][]int64{raw.Go, raw.CantGo, raw.Late}
	for i, ids := range lists {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			p.entries = append(p.entries, participant{userID: id, bucket: Buckets[i]})
		}
	}
	return nil
}

package bot

import (
	"errors"
	"sync"

	"rsvpbot/internal/chat"
)

type sentMessage struct {
	ChatID int64
	ID     int
	Text   string
	Opts   chat.MessageOptions
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Opts      chat.MessageOptions
}

type messageRef struct {
	ChatID    int64
	MessageID int
}

type sentPhoto struct {
	ChatID  int64
	Name    string
	Data    []byte
	Caption string
}

// fakePlatform records every call in memory.
type fakePlatform struct {
	mu sync.Mutex

	nextID   int
	sent     []sentMessage
	edits    []editedMessage
	deleted  []messageRef
	pinned   []messageRef
	photos   []sentPhoto
	answers  []string
	names    map[int64]string
	admins   []int64
	info     chat.Info
	infoErr  error
	failSend map[int64]bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:   1000,
		names:    map[int64]string{},
		failSend: map[int64]bool{},
	}
}

func (f *fakePlatform) SendMessage(chatID int64, text string, opts chat.MessageOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend[chatID] {
		return 0, errors.New("forbidden: bot was blocked by the user")
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ID: f.nextID, Text: text, Opts: opts})
	return f.nextID, nil
}

func (f *fakePlatform) EditMessageText(chatID int64, messageID int, text string, opts chat.MessageOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text, Opts: opts})
	return nil
}

func (f *fakePlatform) DeleteMessage(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageRef{ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *fakePlatform) PinMessage(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = append(f.pinned, messageRef{ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *fakePlatform) ResolveDisplayName(chatID, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return name, nil
}

func (f *fakePlatform) ListAdministrators(chatID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.admins...), nil
}

func (f *fakePlatform) GetChat(chatID int64) (chat.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoErr != nil {
		return chat.Info{}, f.infoErr
	}
	info := f.info
	info.ID = chatID
	return info, nil
}

func (f *fakePlatform) SendPhoto(chatID int64, name string, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, sentPhoto{ChatID: chatID, Name: name, Data: data, Caption: caption})
	return nil
}

func (f *fakePlatform) AnswerCallback(callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakePlatform) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakePlatform) lastEdit() editedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return editedMessage{}
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakePlatform) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakePlatform) wasDeleted(ref messageRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deleted {
		if d == ref {
			return true
		}
	}
	return false
}

func (f *fakePlatform) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

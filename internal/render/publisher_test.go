package render

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rsvpbot/internal/chat"
	"rsvpbot/internal/models"
)

// MockClient is a mock implementation of Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) SendMessage(chatID int64, text string, opts chat.MessageOptions) (int, error) {
	args := m.Called(chatID, text, opts)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) EditMessageText(chatID int64, messageID int, text string, opts chat.MessageOptions) error {
	args := m.Called(chatID, messageID, text, opts)
	return args.Error(0)
}

func (m *MockClient) PinMessage(chatID int64, messageID int) error {
	args := m.Called(chatID, messageID)
	return args.Error(0)
}

func (m *MockClient) ResolveDisplayName(chatID, userID int64) (string, error) {
	args := m.Called(chatID, userID)
	return args.String(0), args.Error(1)
}

func TestPublisher_ResolveNamesKeepsOrderAndDegrades(t *testing.T) {
	client := new(MockClient)
	p := NewPublisher(client, zap.NewNop(), 3)

	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	for _, id := range ids {
		if id == 4 {
			client.On("ResolveDisplayName", testChat, id).Return("", errors.New("user not found"))
			continue
		}
		client.On("ResolveDisplayName", testChat, id).Return(fmt.Sprintf("user%d", id), nil)
	}

	names := p.ResolveNames(testChat, ids)

	require.Len(t, names, len(ids))
	assert.Equal(t, "user1", names[1])
	assert.Equal(t, UnknownName, names[4])
	assert.Equal(t, "user7", names[7])
	client.AssertExpectations(t)
}

func TestPublisher_AnnounceSendsAndPins(t *testing.T) {
	client := new(MockClient)
	p := NewPublisher(client, zap.NewNop(), 2)
	ev := newBoardEvent()

	client.On("SendMessage", testChat, mock.AnythingOfType("string"), mock.MatchedBy(func(o chat.MessageOptions) bool {
		return o.ParseMode == tgbotapi.ModeHTML && o.Keyboard != nil && len(o.Keyboard.InlineKeyboard[0]) == 3
	})).Return(55, nil)
	client.On("PinMessage", testChat, 55).Return(errors.New("not enough rights"))

	id, err := p.Announce(ev)

	require.NoError(t, err)
	assert.Equal(t, 55, id)
	client.AssertExpectations(t)
}

func TestPublisher_RefreshEditsInPlace(t *testing.T) {
	client := new(MockClient)
	p := NewPublisher(client, zap.NewNop(), 2)
	ev := newBoardEvent()
	ev.PostMessageID = 55
	ev.Respond(userA, models.Go)

	client.On("ResolveDisplayName", testChat, userA).Return("Alice", nil)
	client.On("EditMessageText", testChat, 55, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, `1. <a href="tg://user?id=111">Alice</a>`)
	}), mock.Anything).Return(nil)

	require.NoError(t, p.Refresh(ev))
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublisher_RefreshWithoutAnnouncement(t *testing.T) {
	p := NewPublisher(new(MockClient), zap.NewNop(), 2)

	err := p.Refresh(newBoardEvent())
	assert.ErrorIs(t, err, ErrNotAnnounced)
}

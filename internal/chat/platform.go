// Package chat describes what the bot needs from the hosting chat platform.
package chat

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

// MessageOptions tweak how a message is sent or edited.
type MessageOptions struct {
	ParseMode             string
	ReplyToMessageID      int
	Keyboard              *tgbotapi.InlineKeyboardMarkup
	DisableWebPagePreview bool
}

// Info is the chat metadata needed to build message links.
type Info struct {
	ID       int64
	Title    string
	UserName string
}

// Name returns the best human readable name of the chat.
func (i Info) Name() string {
	if i.Title != "" {
		return i.Title
	}
	return i.UserName
}

// Messenger sends a new message and returns its id.
type Messenger interface {
	SendMessage(chatID int64, text string, opts MessageOptions) (int, error)
}

// Platform is the full set of chat operations used by the bot.
type Platform interface {
	Messenger
	EditMessageText(chatID int64, messageID int, text string, opts MessageOptions) error
	DeleteMessage(chatID int64, messageID int) error
	PinMessage(chatID int64, messageID int) error
	ResolveDisplayName(chatID, userID int64) (string, error)
	ListAdministrators(chatID int64) ([]int64, error)
	GetChat(chatID int64) (Info, error)
	SendPhoto(chatID int64, name string, data []byte, caption string) error
	AnswerCallback(callbackID, text string) error
}

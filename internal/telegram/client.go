// Package telegram implements chat.Platform on the Telegram Bot API.
package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"

	"rsvpbot/internal/chat"
)

// Client wraps *tgbotapi.BotAPI.
type Client struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

// New authorizes the bot with token.
func New(token string, debug bool, log *zap.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	api.Debug = debug
	log.Info("Authorized on account", zap.String("username", api.Self.UserName))
	return &Client{api: api, log: log}, nil
}

// UserName returns the bot's own username.
func (c *Client) UserName() string {
	return c.api.Self.UserName
}

// Updates starts long polling.
func (c *Client) Updates(timeout int) (tgbotapi.UpdatesChannel, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return c.api.GetUpdatesChan(u)
}

// Stop ends long polling.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

func (c *Client) SendMessage(chatID int64, text string, opts chat.MessageOptions) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = opts.ParseMode
	msg.ReplyToMessageID = opts.ReplyToMessageID
	msg.DisableWebPagePreview = opts.DisableWebPagePreview
	if opts.Keyboard != nil {
		msg.ReplyMarkup = *opts.Keyboard
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessageText replaces the text and keyboard of a message. Telegram
// rejects edits that change nothing; those count as success.
func (c *Client) EditMessageText(chatID int64, messageID int, text string, opts chat.MessageOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = opts.ParseMode
	edit.DisableWebPagePreview = opts.DisableWebPagePreview
	edit.ReplyMarkup = opts.Keyboard
	if _, err := c.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	_, err := c.api.DeleteMessage(tgbotapi.DeleteMessageConfig{ChatID: chatID, MessageID: messageID})
	return err
}

func (c *Client) PinMessage(chatID int64, messageID int) error {
	_, err := c.api.PinChatMessage(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	return err
}

// ResolveDisplayName returns "First Last", falling back to @username.
func (c *Client) ResolveDisplayName(chatID, userID int64) (string, error) {
	member, err := c.api.GetChatMember(tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: int(userID)})
	if err != nil {
		return "", err
	}
	if member.User == nil {
		return "", fmt.Errorf("no user in chat member %d", userID)
	}
	return DisplayName(member.User), nil
}

func (c *Client) ListAdministrators(chatID int64) ([]int64, error) {
	admins, err := c.api.GetChatAdministrators(tgbotapi.ChatConfig{ChatID: chatID})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(admins))
	for _, a := range admins {
		if a.User != nil {
			ids = append(ids, int64(a.User.ID))
		}
	}
	return ids, nil
}

func (c *Client) GetChat(chatID int64) (chat.Info, error) {
	ch, err := c.api.GetChat(tgbotapi.ChatConfig{ChatID: chatID})
	if err != nil {
		return chat.Info{}, err
	}
	title := ch.Title
	if title == "" {
		title = strings.TrimSpace(ch.FirstName + " " + ch.LastName)
	}
	return chat.Info{ID: ch.ID, Title: title, UserName: ch.UserName}, nil
}

func (c *Client) SendPhoto(chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhotoUpload(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	_, err := c.api.Send(photo)
	return err
}

func (c *Client) AnswerCallback(callbackID, text string) error {
	_, err := c.api.AnswerCallbackQuery(tgbotapi.NewCallback(callbackID, text))
	return err
}

// DisplayName formats a user for humans.
func DisplayName(u *tgbotapi.User) string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return fmt.Sprintf("user %d", u.ID)
}

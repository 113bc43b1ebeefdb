package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
	"rsvpbot/internal/render"
	"rsvpbot/internal/services"
	"rsvpbot/internal/telegram"
)

const helpText = `Hi! Here is what I can do:
/join_all - join the "all" group of this chat
/leave_all - leave the "all" group
/notify_all <message> - send a private message to every member
/add_all @user ... - add users to the group (admins only)
/show_all - list the group (admins only)
/event Title | Description | Time - announce an event with RSVP buttons
/events - list the events of this chat
/event_qr - reply to an announcement to get its QR code

Edit your /event message to update the event. Reply to an announcement to leave a comment next to your name.`

const genericFailure = "Sorry, something went wrong. Please try again."

// handleCommand routes commands to corresponding handlers.
func (b *Bot) handleCommand(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	if !b.addressedToMe(msg) {
		return
	}
	log = log.With(zap.String("command", msg.Command()), zap.Int64("chat_id", msg.Chat.ID))

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(log, msg.Chat.ID, helpText)
	case "join_all":
		b.handleJoin(ctx, log, msg)
	case "leave_all":
		b.handleLeave(ctx, log, msg)
	case "add_all":
		b.AdminCheckMiddleware(b.handleAddAll)(ctx, log, msg)
	case "show_all":
		b.AdminCheckMiddleware(b.handleShowAll)(ctx, log, msg)
	case "notify_all":
		b.handleNotifyAll(ctx, log, msg)
	case "event":
		b.handleCreateEvent(ctx, log, msg)
	case "events":
		b.handleListEvents(ctx, log, msg)
	case "event_qr":
		b.handleEventQR(ctx, log, msg)
	default:
		log.Debug("Ignoring unknown command")
	}
}

// handleJoin handles the /join_all command.
func (b *Bot) handleJoin(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	joined, err := b.groups.Join(ctx, msg.Chat.ID, int64(msg.From.ID))
	if err != nil {
		log.Error("Failed to join group", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}
	if !joined {
		b.sendMessage(log, msg.Chat.ID, `You are already a member of the "all" group.`)
		return
	}
	// Without chat metadata the confirmation goes to the user privately.
	info, err := b.platform.GetChat(msg.Chat.ID)
	if err != nil || info.Name() == "" {
		log.Warn("Failed to resolve chat", zap.Error(err))
		b.sendMessage(log, int64(msg.From.ID), fmt.Sprintf(`You have joined the "all" group in chat: %d`, msg.Chat.ID))
		return
	}
	b.sendMessage(log, msg.Chat.ID, fmt.Sprintf(`You have joined the "all" group in chat: %s`, info.Name()))
}

// handleLeave handles the /leave_all command.
func (b *Bot) handleLeave(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	left, err := b.groups.Leave(ctx, msg.Chat.ID, int64(msg.From.ID))
	if err != nil {
		log.Error("Failed to leave group", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}
	if !left {
		b.sendMessage(log, msg.Chat.ID, `You are not a member of the "all" group.`)
		return
	}
	b.sendMessage(log, msg.Chat.ID, `You have left the "all" group.`)
}

// handleAddAll handles the /add_all command. Targets are users mentioned by
// name (text mentions) and the author of the replied-to message.
func (b *Bot) handleAddAll(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	targets, unresolved := mentionedUsers(msg)
	if len(targets) == 0 && len(unresolved) == 0 {
		b.sendMessage(log, msg.Chat.ID, "Usage: /add_all followed by mentions, or reply to a user's message with /add_all.")
		return
	}

	var added []int64
	if len(targets) > 0 {
		var err error
		added, err = b.groups.AddMembers(ctx, msg.Chat.ID, targets)
		if err != nil {
			log.Error("Failed to add members", zap.Error(err))
			b.sendMessage(log, msg.Chat.ID, genericFailure)
			return
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `Added %d member(s) to the "all" group.`, len(added))
	if already := len(targets) - len(added); already > 0 {
		fmt.Fprintf(&sb, " %d already a member.", already)
	}
	if len(unresolved) > 0 {
		fmt.Fprintf(&sb, "\nCould not resolve: %s. Ask them to use /join_all.", strings.Join(unresolved, ", "))
	}
	b.sendMessage(log, msg.Chat.ID, sb.String())
}

// handleShowAll handles the /show_all command.
func (b *Bot) handleShowAll(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	members, err := b.groups.Members(ctx, msg.Chat.ID)
	if err != nil {
		log.Error("Failed to load group", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}
	if len(members) == 0 {
		b.sendMessage(log, msg.Chat.ID, `The "all" group is empty.`)
		return
	}

	names := b.publisher.ResolveNames(msg.Chat.ID, members)
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Members of the \"all\" group (%d):</b>", len(members))
	for i, id := range members {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, render.Mention(id, names[id]))
	}
	b.sendHTML(log, msg.Chat.ID, sb.String())
}

// handleNotifyAll handles the /notify_all command.
func (b *Bot) handleNotifyAll(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	report, err := b.groups.Broadcast(ctx, msg.Chat.ID, msg.MessageID, senderLabel(msg.From), msg.CommandArguments())
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			b.sendMessage(log, msg.Chat.ID, verr.Usage)
			return
		}
		log.Error("Failed to broadcast", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}
	if report.Total() == 0 {
		b.sendMessage(log, msg.Chat.ID, `The "all" group has no members yet. Use /join_all to join.`)
		return
	}
	b.sendMessage(log, msg.Chat.ID, fmt.Sprintf("Message sent to all group members (%d of %d delivered).", report.Delivered, report.Total()))
}

// handleCreateEvent handles the /event command: store the event, post the
// announcement, then remember which message the announcement is.
func (b *Bot) handleCreateEvent(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	fields, err := services.ParseEventFields(msg.CommandArguments())
	if err != nil {
		b.replyValidation(log, msg, err)
		return
	}

	ev, err := b.events.CreateEvent(ctx, msg.Chat.ID, msg.MessageID, fields)
	if err != nil {
		log.Error("Failed to create event", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}
	log = log.With(zap.Int64("event_id", ev.ID))

	postID, err := b.publisher.Announce(ev)
	if err != nil {
		log.Error("Failed to post announcement", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, "The event was saved but its announcement could not be posted.")
		return
	}
	if _, err := b.events.SetAnnouncement(ctx, msg.Chat.ID, ev.ID, postID); err != nil {
		log.Error("Failed to record announcement", zap.Int("message_id", postID), zap.Error(err))
	}
}

// handleListEvents handles the /events command.
func (b *Bot) handleListEvents(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	events, err := b.events.List(ctx, msg.Chat.ID)
	if err != nil {
		log.Error("Failed to list events", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}
	if len(events) == 0 {
		b.sendMessage(log, msg.Chat.ID, "No events in this chat yet.")
		return
	}

	userName, linkable := b.chatUserName(log, msg.Chat.ID)
	var sb strings.Builder
	sb.WriteString("<b>Events:</b>")
	for i, ev := range events {
		title := html.EscapeString(ev.Title)
		if linkable && ev.PostMessageID != 0 {
			title = fmt.Sprintf(`<a href="%s">%s</a>`, services.Permalink(ev.ChatID, userName, ev.PostMessageID), title)
		}
		fmt.Fprintf(&sb, "\n%d. %s (%s) - %d going",
			i+1, title, html.EscapeString(ev.Time), len(ev.Participants.Members(models.Go)))
	}
	b.sendHTML(log, msg.Chat.ID, sb.String())
}

// handleEventQR handles the /event_qr command sent as a reply to an
// announcement. It sends a QR code of the announcement link.
func (b *Bot) handleEventQR(ctx context.Context, log *zap.Logger, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		b.sendMessage(log, msg.Chat.ID, "Reply to an event announcement with /event_qr.")
		return
	}
	ev, err := b.events.FindByPost(ctx, msg.Chat.ID, msg.ReplyToMessage.MessageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			b.sendMessage(log, msg.Chat.ID, "That message is not an event announcement.")
			return
		}
		log.Error("Failed to find event", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, genericFailure)
		return
	}

	userName, _ := b.chatUserName(log, msg.Chat.ID)
	link := services.Permalink(ev.ChatID, userName, ev.PostMessageID)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		log.Error("Failed to generate QR code", zap.Error(err))
		b.sendMessage(log, msg.Chat.ID, "Failed to generate the QR code.")
		return
	}
	name := "event_" + strconv.FormatInt(ev.ID, 10) + ".png"
	if err := b.platform.SendPhoto(msg.Chat.ID, name, png, ev.Title+"\n"+link); err != nil {
		log.Error("Failed to send QR code", zap.Error(err))
	}
}

func (b *Bot) replyValidation(log *zap.Logger, msg *tgbotapi.Message, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		b.sendMessage(log, msg.Chat.ID, verr.Usage)
		return
	}
	log.Error("Unexpected parse error", zap.Error(err))
	b.sendMessage(log, msg.Chat.ID, genericFailure)
}

// chatUserName returns the public username of the chat. ok is false if the
// chat could not be fetched.
func (b *Bot) chatUserName(log *zap.Logger, chatID int64) (userName string, ok bool) {
	info, err := b.platform.GetChat(chatID)
	if err != nil {
		log.Warn("Failed to resolve chat", zap.Error(err))
		return "", false
	}
	return info.UserName, true
}

// senderLabel is how a broadcast names its author.
func senderLabel(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return telegram.DisplayName(u)
}

// mentionedUsers returns the ids of users mentioned by name and of the
// author of the replied-to message, plus @username mentions, which the Bot
// API cannot turn into ids.
func mentionedUsers(msg *tgbotapi.Message) (ids []int64, unresolved []string) {
	seen := make(map[int64]bool)
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if msg.Entities != nil {
		for _, e := range *msg.Entities {
			switch e.Type {
			case "text_mention":
				if e.User != nil {
					add(int64(e.User.ID))
				}
			case "mention":
				unresolved = append(unresolved, entityText(msg.Text, e))
			}
		}
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		add(int64(msg.ReplyToMessage.From.ID))
	}
	return ids, unresolved
}

// entityText returns the text covered by e. Entity offsets count UTF-16 units.
func entityText(text string, e tgbotapi.MessageEntity) string {
	units := utf16.Encode([]rune(text))
	if e.Offset < 0 || e.Offset+e.Length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
}

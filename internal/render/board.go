// Package render turns an event into its announcement: a formatted board
// and the three RSVP buttons.
package render

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"rsvpbot/internal/models"
)

// UnknownName is shown for participants whose name could not be resolved.
const UnknownName = "Unknown user"

var sectionTitles = map[models.Bucket]string{
	models.Go:     "Going",
	models.CantGo: "Can't Go",
	models.Late:   "Late",
}

var buttonLabels = map[models.Bucket]string{
	models.Go:     "Go",
	models.CantGo: "Can't go",
	models.Late:   "Attend but late",
}

// Board is a rendered announcement.
type Board struct {
	Text     string // HTML formatted
	Keyboard tgbotapi.InlineKeyboardMarkup
}

// Render builds the board for ev. names maps participant ids to display
// names; missing entries fall back to UnknownName. The output depends only
// on its arguments.
func Render(ev *models.Event, names map[int64]string) Board {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(ev.Title) + "</b>\n")
	sb.WriteString(html.EscapeString(ev.Description) + "\n")
	sb.WriteString("Time: " + html.EscapeString(ev.Time) + "\n")

	for _, b := range models.Buckets {
		members := ev.Participants.Members(b)
		fmt.Fprintf(&sb, "\n<b>%s (%d):</b>\n", sectionTitles[b], len(members))
		for i, id := range members {
			fmt.Fprintf(&sb, "%d. %s", i+1, Mention(id, names[id]))
			// One line per participant, whatever the comment contains.
			if c := strings.Join(strings.Fields(ev.Comments[models.CommentKey(id)]), " "); c != "" {
				sb.WriteString(" " + html.EscapeString(c))
			}
			sb.WriteString("\n")
		}
	}

	return Board{
		Text:     strings.TrimRight(sb.String(), "\n"),
		Keyboard: Keyboard(ev.ChatID, ev.ID),
	}
}

// Mention returns an HTML link that opens the profile of userID.
func Mention(userID int64, name string) string {
	if name == "" {
		name = UnknownName
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}

// Keyboard returns the RSVP buttons of an event.
func Keyboard(chatID, eventID int64) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(models.Buckets))
	for _, b := range models.Buckets {
		action := models.Action{Bucket: b, ChatID: chatID, EventID: eventID}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(buttonLabels[b], action.Encode()))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// Package status serves a read-only HTTP view of the bot's state.
package status

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

// EventLister lists the events of a chat.
type EventLister interface {
	List(ctx context.Context, chatID int64) ([]*models.Event, error)
}

// EventSummary is the JSON shape of one event.
type EventSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Time          string `json:"time"`
	PostMessageID int    `json:"postMessageId,omitempty"`
	Going         int    `json:"going"`
	CantGo        int    `json:"cantGo"`
	Late          int    `json:"late"`
	Comments      int    `json:"comments"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type Handler struct {
	events EventLister
	router *gin.Engine
	log    *zap.Logger
}

func NewHandler(events EventLister, log *zap.Logger) *Handler {
	h := &Handler{
		events: events,
		router: gin.New(),
		log:    log,
	}
	h.router.Use(gin.Recovery())

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/chats/:chatID/events", h.listEvents)
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// listEvents handles GET /chats/:chatID/events
func (h *Handler) listEvents(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chatID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "chat id must be an integer",
		})
		return
	}

	events, err := h.events.List(c.Request.Context(), chatID)
	if err != nil {
		h.log.Error("Failed to list events", zap.Int64("chat_id", chatID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "failed to list events",
		})
		return
	}

	out := make([]EventSummary, 0, len(events))
	for _, ev := range events {
		out = append(out, summarize(ev))
	}
	c.JSON(http.StatusOK, out)
}

func summarize(ev *models.Event) EventSummary {
	return EventSummary{
		ID:            ev.ID,
		Title:         ev.Title,
		Description:   ev.Description,
		Time:          ev.Time,
		PostMessageID: ev.PostMessageID,
		Going:         len(ev.Participants.Members(models.Go)),
		CantGo:        len(ev.Participants.Members(models.CantGo)),
		Late:          len(ev.Participants.Members(models.Late)),
		Comments:      len(ev.Comments),
	}
}

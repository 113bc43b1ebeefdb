package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockEventLister is a mock implementation of EventLister
type MockEventLister struct {
	mock.Mock
}

func (m *MockEventLister) List(ctx context.Context, chatID int64) ([]*models.Event, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func TestHandler_HealthCheck(t *testing.T) {
	handler := NewHandler(new(MockEventLister), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestHandler_ListEvents(t *testing.T) {
	lister := new(MockEventLister)
	ev := models.NewEvent(-100, 7, 3, models.EventFields{Title: "Movie Night", Description: "Watch a film", Time: "8pm"})
	ev.PostMessageID = 12
	ev.Respond(1, models.Go)
	ev.Respond(2, models.Go)
	ev.Respond(3, models.Late)
	ev.SetComment(3, "traffic")
	lister.On("List", mock.Anything, int64(-100)).Return([]*models.Event{ev}, nil)

	handler := NewHandler(lister, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/chats/-100/events", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []EventSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []EventSummary{{
		ID:            7,
		Title:         "Movie Night",
		Description:   "Watch a film",
		Time:          "8pm",
		PostMessageID: 12,
		Going:         2,
		CantGo:        0,
		Late:          1,
		Comments:      1,
	}}, response)
	lister.AssertExpectations(t)
}

func TestHandler_ListEvents_Empty(t *testing.T) {
	lister := new(MockEventLister)
	lister.On("List", mock.Anything, int64(5)).Return([]*models.Event{}, nil)

	handler := NewHandler(lister, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/chats/5/events", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandler_ListEvents_InvalidChatID(t *testing.T) {
	lister := new(MockEventLister)
	handler := NewHandler(lister, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/chats/general/events", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	lister.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestHandler_ListEvents_StoreError(t *testing.T) {
	lister := new(MockEventLister)
	lister.On("List", mock.Anything, int64(5)).Return(nil, errors.New("disk on fire"))

	handler := NewHandler(lister, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/chats/5/events", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "internal_error", response.Error)
}

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

const testChat int64 = -1001234567890

func setupFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"file":   setupFileStore(t),
		"sqlite": setupSQLiteStore(t),
	}
}

func newTestEvent(id int64) *models.Event {
	return models.NewEvent(testChat, id, 100+int(id), models.EventFields{
		Title:       "Movie Night",
		Description: "Watch a film",
		Time:        "8pm",
	})
}

func TestStore_InsertGetSave(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ev := newTestEvent(1)
			require.NoError(t, s.InsertEvent(ctx, ev))

			got, err := s.GetEvent(ctx, testChat, 1)
			require.NoError(t, err)
			assert.Equal(t, "Movie Night", got.Title)
			assert.Equal(t, 101, got.OriginalMessageID)
			assert.Equal(t, 0, got.Participants.Len())
			assert.NotNil(t, got.Comments)

			got.Respond(5, models.Late)
			got.SetComment(5, "bringing snacks")
			got.PostMessageID = 777
			require.NoError(t, s.SaveEvent(ctx, got))

			again, err := s.GetEvent(ctx, testChat, 1)
			require.NoError(t, err)
			assert.Equal(t, []int64{5}, again.Participants.Members(models.Late))
			assert.Equal(t, "bringing snacks", again.Comments["5"])
			assert.Equal(t, 777, again.PostMessageID)
		})
	}
}

func TestStore_InsertConflict(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.InsertEvent(ctx, newTestEvent(2)))
			err := s.InsertEvent(ctx, newTestEvent(2))
			assert.ErrorIs(t, err, models.ErrConflict)
		})
	}
}

type failingFile struct {
	closed bool
}

func (f *failingFile) Write(p []byte) (int, error) { return 0, errors.New("no space left on device") }
func (f *failingFile) Close() error                { f.closed = true; return nil }

func TestFileStore_FailedWriteReleasesClaim(t *testing.T) {
	ctx := context.Background()
	s := setupFileStore(t)
	ev := newTestEvent(3)
	path := s.eventPath(testChat, ev.ID)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f := &failingFile{}
	err := finishClaim(f, path, []byte("{}"))

	assert.EqualError(t, err, "no space left on device")
	assert.True(t, f.closed)
	assert.NoFileExists(t, path)
	require.NoError(t, s.InsertEvent(ctx, ev), "released id can be claimed again")
	got, err := s.GetEvent(ctx, testChat, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Movie Night", got.Title)
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetEvent(ctx, testChat, 404)
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestStore_ListEventsByChat(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.InsertEvent(ctx, newTestEvent(3)))
			require.NoError(t, s.InsertEvent(ctx, newTestEvent(1)))
			other := newTestEvent(2)
			other.ChatID = 42
			require.NoError(t, s.InsertEvent(ctx, other))

			events, err := s.ListEvents(ctx, testChat)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, int64(1), events[0].ID)
			assert.Equal(t, int64(3), events[1].ID)

			empty, err := s.ListEvents(ctx, 999)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestFileStore_ListSkipsCorrupt(t *testing.T) {
	ctx := context.Background()
	s := setupFileStore(t)
	require.NoError(t, s.InsertEvent(ctx, newTestEvent(1)))
	require.NoError(t, os.WriteFile(s.eventPath(testChat, 2), []byte("{not json"), 0o644))
	require.NoError(t, s.InsertEvent(ctx, newTestEvent(3)))

	events, err := s.ListEvents(ctx, testChat)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, int64(3), events[1].ID)
}

func TestSQLiteStore_ListSkipsCorrupt(t *testing.T) {
	ctx := context.Background()
	s := setupSQLiteStore(t)
	require.NoError(t, s.InsertEvent(ctx, newTestEvent(1)))
	_, err := s.db.Exec("INSERT INTO events (chat_id, event_id, payload) VALUES (?, ?, ?)", testChat, 2, "garbage")
	require.NoError(t, err)

	events, err := s.ListEvents(ctx, testChat)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].ID)
}

func TestStore_Groups(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g, err := s.LoadGroup(ctx, testChat)
			require.NoError(t, err)
			assert.Empty(t, g.Members)
			assert.Equal(t, testChat, g.ChatID)

			g.Add(1)
			g.Add(2)
			require.NoError(t, s.SaveGroup(ctx, g))

			loaded, err := s.LoadGroup(ctx, testChat)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2}, loaded.Members)

			loaded.Remove(1)
			loaded.Remove(2)
			require.NoError(t, s.SaveGroup(ctx, loaded))

			emptied, err := s.LoadGroup(ctx, testChat)
			require.NoError(t, err)
			assert.Empty(t, emptied.Members)
		})
	}
}

func TestFileStore_GroupFileIsMemberArray(t *testing.T) {
	s := setupFileStore(t)
	require.NoError(t, s.SaveGroup(context.Background(), &models.Group{ChatID: 7, Members: []int64{3, 1}}))

	data, err := os.ReadFile(s.groupPath(7))
	require.NoError(t, err)
	assert.JSONEq(t, `[3,1]`, string(data))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "redis"}, zap.NewNop())
	assert.Error(t, err)
}

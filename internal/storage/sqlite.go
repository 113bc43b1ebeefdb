package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

// SQLiteStore implements Store on a single SQLite file. Events are kept as
// JSON payloads keyed by (chat_id, event_id).
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens the database at path and creates the tables.
func OpenSQLite(path string, log *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time avoids "database is locked" under concurrent updates.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db, log)
	if err := s.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(db *sql.DB, log *zap.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log}
}

// CreateTables creates the events and chat_groups tables
func (s *SQLiteStore) CreateTables() error {
	eventTable := `CREATE TABLE IF NOT EXISTS events (
		chat_id INTEGER NOT NULL,
		event_id INTEGER NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME,
		PRIMARY KEY (chat_id, event_id)
	);`

	groupTable := `CREATE TABLE IF NOT EXISTS chat_groups (
		chat_id INTEGER PRIMARY KEY,
		members TEXT NOT NULL
	);`

	if _, err := s.db.Exec(eventTable); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	if _, err := s.db.Exec(groupTable); err != nil {
		return fmt.Errorf("create chat_groups table: %w", err)
	}
	return nil
}

// InsertEvent adds a new event, refusing to overwrite an existing key
func (s *SQLiteStore) InsertEvent(ctx context.Context, ev *models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO events (chat_id, event_id, payload, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(chat_id, event_id) DO NOTHING")
	if err != nil {
		return err
	}
	defer stmt.Close()
	res, err := stmt.ExecContext(ctx, ev.ChatID, ev.ID, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrConflict
	}
	return nil
}

// GetEvent returns a single event of a chat
func (s *SQLiteStore) GetEvent(ctx context.Context, chatID, eventID int64) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT payload FROM events WHERE chat_id = ? AND event_id = ?", chatID, eventID)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return decodeEvent(payload)
}

// ListEvents returns all decodable events of a chat
func (s *SQLiteStore) ListEvents(ctx context.Context, chatID int64) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT event_id, payload FROM events WHERE chat_id = ? ORDER BY event_id ASC", chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var eventID int64
		var payload string
		if err := rows.Scan(&eventID, &payload); err != nil {
			return nil, err
		}
		ev, err := decodeEvent(payload)
		if err != nil {
			s.log.Warn("Skipping unreadable event row",
				zap.Int64("chat_id", chatID), zap.Int64("event_id", eventID), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// SaveEvent inserts or overwrites an event
func (s *SQLiteStore) SaveEvent(ctx context.Context, ev *models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	stmt, err := s.db.PrepareContext(ctx, `INSERT INTO events (chat_id, event_id, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id, event_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.ExecContext(ctx, ev.ChatID, ev.ID, string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

// LoadGroup returns the member list of a chat
func (s *SQLiteStore) LoadGroup(ctx context.Context, chatID int64) (*models.Group, error) {
	g := &models.Group{ChatID: chatID}
	row := s.db.QueryRowContext(ctx, "SELECT members FROM chat_groups WHERE chat_id = ?", chatID)
	var members string
	if err := row.Scan(&members); err != nil {
		if err == sql.ErrNoRows {
			return g, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return nil, fmt.Errorf("decode group %d: %w", chatID, err)
	}
	return g, nil
}

// SaveGroup inserts or overwrites the member list of a chat
func (s *SQLiteStore) SaveGroup(ctx context.Context, g *models.Group) error {
	members, err := encodeMembers(g)
	if err != nil {
		return err
	}
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO chat_groups (chat_id, members) VALUES (?, ?) ON CONFLICT(chat_id) DO UPDATE SET members = excluded.members")
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.ExecContext(ctx, g.ChatID, members)
	return err
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeEvent(payload string) (*models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.Comments == nil {
		ev.Comments = map[string]string{}
	}
	return &ev, nil
}

func encodeMembers(g *models.Group) (string, error) {
	members := g.Members
	if members == nil {
		members = []int64{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

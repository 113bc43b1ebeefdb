package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

// PostgresStore implements Store on PostgreSQL with the same key/payload
// layout as SQLiteStore.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// OpenPostgres connects to connStr, checks the connection and creates the tables.
func OpenPostgres(ctx context.Context, connStr string, log *zap.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse config error: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgx connect error: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx ping error: %w", err)
	}

	s := &PostgresStore{pool: pool, log: log}
	if err := s.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS events (
    chat_id    BIGINT NOT NULL,
    event_id   BIGINT NOT NULL,
    payload    TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (chat_id, event_id)
)`); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chat_groups (
    chat_id BIGINT PRIMARY KEY,
    members TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("create chat_groups table: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, ev *models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
INSERT INTO events (chat_id, event_id, payload)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id, event_id) DO NOTHING
`, ev.ChatID, ev.ID, string(payload))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, chatID, eventID int64) (*models.Event, error) {
	var payload string
	err := s.pool.QueryRow(ctx, `
SELECT payload FROM events
WHERE chat_id = $1 AND event_id = $2
`, chatID, eventID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return decodeEvent(payload)
}

func (s *PostgresStore) ListEvents(ctx context.Context, chatID int64) ([]*models.Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT event_id, payload FROM events
WHERE chat_id = $1
ORDER BY event_id
`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Event
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
		result = append(result, ev)
	}
	return result, rows.Err()
}

func (s *PostgresStore) SaveEvent(ctx context.Context, ev *models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO events (chat_id, event_id, payload)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id, event_id) DO UPDATE
SET payload = EXCLUDED.payload, updated_at = now()
`, ev.ChatID, ev.ID, string(payload))
	return err
}

func (s *PostgresStore) LoadGroup(ctx context.Context, chatID int64) (*models.Group, error) {
	g := &models.Group{ChatID: chatID}
	var members string
	err := s.pool.QueryRow(ctx, `SELECT members FROM chat_groups WHERE chat_id = $1`, chatID).Scan(&members)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return g, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return nil, fmt.Errorf("decode group %d: %w", chatID, err)
	}
	return g, nil
}

func (s *PostgresStore) SaveGroup(ctx context.Context, g *models.Group) error {
	members, err := encodeMembers(g)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO chat_groups (chat_id, members)
VALUES ($1, $2)
ON CONFLICT (chat_id) DO UPDATE SET members = EXCLUDED.members
`, g.ChatID, members)
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

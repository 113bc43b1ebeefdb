package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

// Store defines the persistence operations for events and groups.
type Store interface {
	// InsertEvent stores a new event. It returns models.ErrConflict if the
	// (chat, id) key is taken.
	InsertEvent(ctx context.Context, ev *models.Event) error
	// GetEvent returns models.ErrNotFound if the event does not exist.
	GetEvent(ctx context.Context, chatID, eventID int64) (*models.Event, error)
	// ListEvents returns every readable event of a chat ordered by id.
	// Unreadable records are skipped.
	ListEvents(ctx context.Context, chatID int64) ([]*models.Event, error)
	// SaveEvent overwrites the stored event. Last writer wins.
	SaveEvent(ctx context.Context, ev *models.Event) error

	// LoadGroup returns an empty group if the chat has none yet.
	LoadGroup(ctx context.Context, chatID int64) (*models.Group, error)
	SaveGroup(ctx context.Context, g *models.Group) error

	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	DataDir     string
	SQLitePath  string
	DatabaseURL string
}

// Open creates the store selected by opts.Backend.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.DataDir, log)
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath, log)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.DatabaseURL, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rsvpbot/internal/models"
)

// FileStore keeps one JSON file per event and one per group:
//
//	<root>/events/<chat>/<event>.json
//	<root>/groups/<chat>.json
type FileStore struct {
	root string
	log  *zap.Logger
}

// NewFileStore creates the directory layout under root.
func NewFileStore(root string, log *zap.Logger) (*FileStore, error) {
	for _, dir := range []string{filepath.Join(root, "events"), filepath.Join(root, "groups")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &FileStore{root: root, log: log}, nil
}

func (s *FileStore) chatDir(chatID int64) string {
	return filepath.Join(s.root, "events", strconv.FormatInt(chatID, 10))
}

func (s *FileStore) eventPath(chatID, eventID int64) string {
	return filepath.Join(s.chatDir(chatID), strconv.FormatInt(eventID, 10)+".json")
}

func (s *FileStore) groupPath(chatID int64) string {
	return filepath.Join(s.root, "groups", strconv.FormatInt(chatID, 10)+".json")
}

// InsertEvent claims the event file with O_EXCL so two creators never share an id.
func (s *FileStore) InsertEvent(ctx context.Context, ev *models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := os.MkdirAll(s.chatDir(ev.ChatID), 0o755); err != nil {
		return err
	}
	path := s.eventPath(ev.ChatID, ev.ID)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return models.ErrConflict
		}
		return err
	}
	return finishClaim(f, path, data)
}

// finishClaim writes data into the freshly claimed file f. On failure the
// claim is released so the id can be used again.
func finishClaim(f io.WriteCloser, path string, data []byte) error {
	_, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func (s *FileStore) GetEvent(ctx context.Context, chatID, eventID int64) (*models.Event, error) {
	return s.readEvent(s.eventPath(chatID, eventID))
}

func (s *FileStore) readEvent(path string) (*models.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if ev.Comments == nil {
		ev.Comments = map[string]string{}
	}
	return &ev, nil
}

func (s *FileStore) ListEvents(ctx context.Context, chatID int64) ([]*models.Event, error) {
	entries, err := os.ReadDir(s.chatDir(chatID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var events []*models.Event
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.chatDir(chatID), entry.Name())
		ev, err := s.readEvent(path)
		if err != nil {
			s.log.Warn("Skipping unreadable event file", zap.String("path", path), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (s *FileStore) SaveEvent(ctx context.Context, ev *models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := os.MkdirAll(s.chatDir(ev.ChatID), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(s.eventPath(ev.ChatID, ev.ID), data)
}

func (s *FileStore) LoadGroup(ctx context.Context, chatID int64) (*models.Group, error) {
	g := &models.Group{ChatID: chatID}
	data, err := os.ReadFile(s.groupPath(chatID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return g, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &g.Members); err != nil {
		return nil, fmt.Errorf("decode group %d: %w", chatID, err)
	}
	return g, nil
}

func (s *FileStore) SaveGroup(ctx context.Context, g *models.Group) error {
	members := g.Members
	if members == nil {
		members = []int64{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.groupPath(g.ChatID), data)
}

func (s *FileStore) Close() error { return nil }

// writeFileAtomic replaces path so readers never see a partial write.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

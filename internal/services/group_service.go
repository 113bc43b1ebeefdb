package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rsvpbot/internal/chat"
)

// GroupService manages the opt-in "all" group of each chat and fans
// notifications out to its members.
type GroupService struct {
	repo     GroupRepository
	notifier Notifier
	log      *zap.Logger
	locks    keyedMutex
}

// NewGroupService creates a new group service
func NewGroupService(repo GroupRepository, notifier Notifier, log *zap.Logger) *GroupService {
	return &GroupService{repo: repo, notifier: notifier, log: log}
}

// BroadcastReport summarises a fan-out.
type BroadcastReport struct {
	Delivered int
	Failed    int
	Link      string // empty when the chat metadata could not be resolved
}

// Total is the number of members a delivery was attempted to.
func (r BroadcastReport) Total() int {
	return r.Delivered + r.Failed
}

// Join adds userID to the chat's group. It returns false if userID already
// was a member.
func (s *GroupService) Join(ctx context.Context, chatID, userID int64) (bool, error) {
	added, err := s.AddMembers(ctx, chatID, []int64{userID})
	if err != nil {
		return false, err
	}
	return len(added) == 1, nil
}

// Leave removes userID from the chat's group. It returns false if userID was
// not a member.
func (s *GroupService) Leave(ctx context.Context, chatID, userID int64) (bool, error) {
	unlock := s.locks.Lock(strconv.FormatInt(chatID, 10))
	defer unlock()

	g, err := s.repo.LoadGroup(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("load group: %w", err)
	}
	if !g.Remove(userID) {
		return false, nil
	}
	if err := s.repo.SaveGroup(ctx, g); err != nil {
		return false, fmt.Errorf("save group: %w", err)
	}
	return true, nil
}

// AddMembers adds every user in userIDs and returns the ones that were not
// members before. Nothing is written if nobody is new.
func (s *GroupService) AddMembers(ctx context.Context, chatID int64, userIDs []int64) ([]int64, error) {
	unlock := s.locks.Lock(strconv.FormatInt(chatID, 10))
	defer unlock()

	g, err := s.repo.LoadGroup(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	var added []int64
	for _, id := range userIDs {
		if g.Add(id) {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.repo.SaveGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("save group: %w", err)
	}
	return added, nil
}

// Members returns the members of the chat's group in join order.
func (s *GroupService) Members(ctx context.Context, chatID int64) ([]int64, error) {
	g, err := s.repo.LoadGroup(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	return g.Members, nil
}

// Broadcast sends "sender: text (link)" privately to every member. The link
// points back at messageID; if the chat metadata cannot be fetched the
// message goes out without it. A failed delivery does not stop the others.
func (s *GroupService) Broadcast(ctx context.Context, chatID int64, messageID int, sender, text string) (BroadcastReport, error) {
	var report BroadcastReport
	if strings.TrimSpace(text) == "" {
		return report, &ValidationError{Reason: "empty message", Usage: "Please provide a message to send."}
	}

	members, err := s.Members(ctx, chatID)
	if err != nil {
		return report, err
	}

	info, err := s.notifier.GetChat(chatID)
	if err != nil {
		s.log.Warn("Failed to resolve chat, sending without link", zap.Int64("chat_id", chatID), zap.Error(err))
	} else {
		report.Link = Permalink(chatID, info.UserName, messageID)
	}

	body := fmt.Sprintf("%s: %s", sender, text)
	if report.Link != "" {
		body = fmt.Sprintf("%s (%s)", body, report.Link)
	}

	for _, memberID := range members {
		if _, err := s.notifier.SendMessage(memberID, body, chat.MessageOptions{}); err != nil {
			report.Failed++
			s.log.Warn("Failed to deliver broadcast",
				zap.Int64("chat_id", chatID), zap.Int64("member_id", memberID), zap.Error(err))
			continue
		}
		report.Delivered++
	}

	s.log.Info("Broadcast sent",
		zap.Int64("chat_id", chatID),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed))
	return report, nil
}

// Permalink returns a t.me link to messageID. Public chats are addressed by
// username, private supergroups by their internal id.
func Permalink(chatID int64, chatUserName string, messageID int) string {
	if chatUserName != "" {
		return fmt.Sprintf("https://t.me/%s/%d", chatUserName, messageID)
	}
	id := strconv.FormatInt(chatID, 10)
	if trimmed := strings.TrimPrefix(id, "-100"); trimmed != id {
		id = trimmed
	} else {
		id = strings.TrimPrefix(id, "-")
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", id, messageID)
}

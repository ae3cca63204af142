package membership

import (
	"context"
	"log/slog"
)

// Verdict is the tri-state outcome of one membership probe. Unknown is
// produced on platform errors and gating treats it like NotMember.
type Verdict int

const (
	NotMember Verdict = iota
	Member
	Unknown
)

// StatusChecker resolves a user's member status in a chat, in the
// platform's status vocabulary.
type StatusChecker interface {
	ChatMemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

type Service struct {
	checker       StatusChecker
	requiredChats []int64
	logger        *slog.Logger
}

func NewService(checker StatusChecker, requiredChats []int64, logger *slog.Logger) *Service {
	return &Service{checker: checker, requiredChats: requiredChats, logger: logger}
}

func (s *Service) RequiredChats() []int64 {
	return s.requiredChats
}

// IsMember probes one chat. A transport error degrades to Unknown, never
// to an error.
func (s *Service) IsMember(ctx context.Context, chatID, userID int64) Verdict {
	if s.checker == nil {
		return Unknown
	}

	status, err := s.checker.ChatMemberStatus(ctx, chatID, userID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("membership probe failed", "chat_id", chatID, "user_id", userID, "err", err)
		}
		return Unknown
	}

	switch status {
	case "member", "administrator", "creator":
		return Member
	default:
		return NotMember
	}
}

// IsMemberOfAll evaluates the required chats in order and stops at the
// first chat the user is not confirmed in.
func (s *Service) IsMemberOfAll(ctx context.Context, userID int64) bool {
	if len(s.requiredChats) == 0 {
		return true
	}
	for _, chatID := range s.requiredChats {
		if s.IsMember(ctx, chatID, userID) != Member {
			return false
		}
	}
	return true
}

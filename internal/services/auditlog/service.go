package auditlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type Repo interface {
	Append(context.Context, model.AuditEntry) error
	ListByUser(context.Context, int64) ([]model.AuditEntry, error)
	ListSince(context.Context, time.Time) ([]model.AuditEntry, error)
}

// Service appends to the per-user communication log. Append failures are
// logged and swallowed; auditing must never break message handling.
type Service struct {
	repo   Repo
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repo, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Log(ctx context.Context, sender model.Sender, chatID int64, isMember bool, action enums.AuditAction, kind enums.MessageKind) {
	if s.repo == nil {
		return
	}

	entry := model.AuditEntry{
		ID:          uuid.NewString(),
		Timestamp:   s.now().UTC(),
		TGID:        sender.TGID,
		Username:    sender.Username,
		ChatID:      chatID,
		IsMember:    isMember,
		Action:      action,
		MessageKind: kind,
	}
	if err := s.repo.Append(ctx, entry); err != nil && s.logger != nil {
		s.logger.Error("append audit entry", "tg_id", sender.TGID, "action", action, "err", err)
	}
}

func (s *Service) HistoryFor(ctx context.Context, tgID int64) ([]model.AuditEntry, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListByUser(ctx, tgID)
}

// Report summarizes activity since the given time as a human-readable
// block for the operator channel.
func (s *Service) Report(ctx context.Context, since time.Time) (string, error) {
	if s.repo == nil {
		return "", nil
	}

	entries, err := s.repo.ListSince(ctx, since)
	if err != nil {
		return "", fmt.Errorf("list audit entries: %w", err)
	}

	counts := make(map[enums.AuditAction]int)
	seen := make(map[int64]bool)
	for _, entry := range entries {
		counts[entry.Action]++
		seen[entry.TGID] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Activity since %s\n", since.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Messages: %d, users: %d\n", len(entries), len(seen))
	for _, action := range []enums.AuditAction{
		enums.AuditActionDelivered,
		enums.AuditActionSilentlyIgnored,
		enums.AuditActionMembershipChallenge,
		enums.AuditActionIntroductionRequired,
		enums.AuditActionIntroductionReceived,
		enums.AuditActionConsentRequired,
		enums.AuditActionContentBlocked,
		enums.AuditActionDeliveryFailed,
	} {
		if counts[action] > 0 {
			fmt.Fprintf(&b, "%s: %d\n", action, counts[action])
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

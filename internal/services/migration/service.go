package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type MemberLister interface {
	ListMembers(ctx context.Context, chatID int64) ([]model.Sender, error)
}

// ConsentManager runs the interactive consent round-trip and remembers
// past decisions.
type ConsentManager interface {
	HasConsent(ctx context.Context, tgID int64, consentType enums.ConsentType) (bool, error)
	Ask(ctx context.Context, tgID int64, consentType enums.ConsentType, send func(requestID string) error) (bool, error)
}

// Notifier performs the outbound legs of a migration: the consent prompt,
// the invite to the target group, and operator progress updates.
type Notifier interface {
	SendConsentPrompt(ctx context.Context, userID int64, requestID string) error
	Invite(ctx context.Context, userID int64) error
	Progress(ctx context.Context, text string)
}

type Stats struct {
	Total     int
	Processed int
	Invited   int
	Declined  int
	Failed    int
}

type Config struct {
	SourceChatID int64
	BatchSize    int
	BatchDelay   time.Duration
}

// Service migrates members of the source group in batches. Each member is
// asked for explicit consent and is only invited after granting it; no
// answer within the consent window counts as declined.
type Service struct {
	lister  MemberLister
	consent ConsentManager
	notify  Notifier
	cfg     Config
	logger  *slog.Logger
}

func NewService(lister MemberLister, consent ConsentManager, notify Notifier, cfg Config, logger *slog.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 2 * time.Second
	}
	return &Service{lister: lister, consent: consent, notify: notify, cfg: cfg, logger: logger}
}

// Run executes one full migration pass. Batches are separated by a
// cooperative delay so single-message gating sharing the process is never
// starved; ctx cancellation stops between members.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	if s.cfg.SourceChatID == 0 {
		return Stats{}, fmt.Errorf("source chat is not configured")
	}

	members, err := s.lister.ListMembers(ctx, s.cfg.SourceChatID)
	if err != nil {
		return Stats{}, fmt.Errorf("list source members: %w", err)
	}

	stats := Stats{Total: len(members)}
	for i, member := range members {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if i > 0 && i%s.cfg.BatchSize == 0 {
			s.notify.Progress(ctx, s.progressText(stats))
			select {
			case <-time.After(s.cfg.BatchDelay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}

		s.processMember(ctx, member, &stats)
		stats.Processed++
	}

	s.notify.Progress(ctx, "Migration finished.\n"+s.progressText(stats))
	return stats, nil
}

func (s *Service) processMember(ctx context.Context, member model.Sender, stats *Stats) {
	granted, err := s.consent.HasConsent(ctx, member.TGID, enums.ConsentMigration)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("read migration consent", "tg_id", member.TGID, "err", err)
		}
		stats.Failed++
		return
	}

	if !granted {
		granted, err = s.consent.Ask(ctx, member.TGID, enums.ConsentMigration, func(requestID string) error {
			return s.notify.SendConsentPrompt(ctx, member.TGID, requestID)
		})
		if err != nil {
			if s.logger != nil {
				s.logger.Error("migration consent prompt", "tg_id", member.TGID, "err", err)
			}
			stats.Failed++
			return
		}
	}

	if !granted {
		stats.Declined++
		return
	}

	if err := s.notify.Invite(ctx, member.TGID); err != nil {
		if s.logger != nil {
			s.logger.Error("invite member", "tg_id", member.TGID, "err", err)
		}
		stats.Failed++
		return
	}
	stats.Invited++
}

func (s *Service) progressText(stats Stats) string {
	return fmt.Sprintf("Members: %d\nProcessed: %d\nInvited: %d\nDeclined: %d\nFailed: %d",
		stats.Total, stats.Processed, stats.Invited, stats.Declined, stats.Failed)
}

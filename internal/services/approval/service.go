package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bot_gatekeeper/internal/domain/model"
)

// IntroMarker prefixes a message that should be treated as an
// introduction submission. Matching is case-insensitive.
const IntroMarker = "INTRODUCTION:"

type Repo interface {
	IsApproved(context.Context, int64) (bool, error)
	Approve(context.Context, int64) error
	Revoke(context.Context, int64) error
	PutPending(context.Context, model.PendingIntroduction) error
	GetPending(context.Context, int64) (*model.PendingIntroduction, error)
	DeletePending(context.Context, int64) error
	ListPending(context.Context) ([]model.PendingIntroduction, error)
}

type Service struct {
	repo Repo
	now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ExtractIntroduction returns the introduction text if the message carries
// the marker, with the marker itself stripped.
func ExtractIntroduction(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(IntroMarker) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(IntroMarker)], IntroMarker) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(IntroMarker):]), true
}

func (s *Service) IsApproved(ctx context.Context, tgID int64) (bool, error) {
	if s.repo == nil {
		return false, nil
	}
	return s.repo.IsApproved(ctx, tgID)
}

// Submit records an introduction for operator review. A resubmission
// overwrites the previous pending record.
func (s *Service) Submit(ctx context.Context, sender model.Sender, introduction string) (model.PendingIntroduction, error) {
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	intro := model.PendingIntroduction{
		TGID:         sender.TGID,
		Name:         name,
		Username:     sender.Username,
		Introduction: introduction,
		SubmittedAt:  s.now().UTC(),
	}
	if s.repo == nil {
		return intro, nil
	}
	if err := s.repo.PutPending(ctx, intro); err != nil {
		return model.PendingIntroduction{}, fmt.Errorf("put pending introduction %d: %w", sender.TGID, err)
	}
	return intro, nil
}

func (s *Service) Approve(ctx context.Context, tgID int64) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Approve(ctx, tgID); err != nil {
		return fmt.Errorf("approve %d: %w", tgID, err)
	}
	return nil
}

// Reject discards the pending introduction without approving the user.
func (s *Service) Reject(ctx context.Context, tgID int64) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.DeletePending(ctx, tgID); err != nil {
		return fmt.Errorf("reject %d: %w", tgID, err)
	}
	return nil
}

func (s *Service) Revoke(ctx context.Context, tgID int64) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Revoke(ctx, tgID); err != nil {
		return fmt.Errorf("revoke %d: %w", tgID, err)
	}
	return nil
}

func (s *Service) PendingFor(ctx context.Context, tgID int64) (*model.PendingIntroduction, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetPending(ctx, tgID)
}

func (s *Service) ListPending(ctx context.Context) ([]model.PendingIntroduction, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListPending(ctx)
}

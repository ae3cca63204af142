package users

import (
	"context"
	"fmt"
	"time"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

// BlockTTL is how long a content block stays in force before it expires
// on the next read.
const BlockTTL = 24 * time.Hour

type Repo interface {
	Get(context.Context, int64) (*model.UserRecord, error)
	Upsert(context.Context, model.UserRecord) error
	List(context.Context) ([]model.UserRecord, error)
}

type Service struct {
	repo Repo
	now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Touch records the sender in the user store, creating the record on first
// contact. The second return value reports whether this was first contact.
func (s *Service) Touch(ctx context.Context, sender model.Sender) (model.UserRecord, bool, error) {
	if s.repo == nil {
		return model.UserRecord{TGID: sender.TGID}, false, nil
	}

	existing, err := s.repo.Get(ctx, sender.TGID)
	if err != nil {
		return model.UserRecord{}, false, fmt.Errorf("get user %d: %w", sender.TGID, err)
	}
	if existing == nil {
		record := model.UserRecord{
			TGID:      sender.TGID,
			Username:  sender.Username,
			FirstName: sender.FirstName,
			LastName:  sender.LastName,
			FirstSeen: s.now().UTC(),
		}
		if err := s.repo.Upsert(ctx, record); err != nil {
			return model.UserRecord{}, false, fmt.Errorf("create user %d: %w", sender.TGID, err)
		}
		return record, true, nil
	}

	if existing.Username != sender.Username || existing.FirstName != sender.FirstName || existing.LastName != sender.LastName {
		existing.Username = sender.Username
		existing.FirstName = sender.FirstName
		existing.LastName = sender.LastName
		if err := s.repo.Upsert(ctx, *existing); err != nil {
			return model.UserRecord{}, false, fmt.Errorf("update user %d: %w", sender.TGID, err)
		}
	}
	return *existing, false, nil
}

func (s *Service) Get(ctx context.Context, tgID int64) (*model.UserRecord, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Get(ctx, tgID)
}

func (s *Service) List(ctx context.Context) ([]model.UserRecord, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.List(ctx)
}

func (s *Service) MarkWelcomed(ctx context.Context, tgID int64) error {
	if s.repo == nil {
		return nil
	}

	record, err := s.repo.Get(ctx, tgID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", tgID, err)
	}
	if record == nil || record.Welcomed {
		return nil
	}
	record.Welcomed = true
	if err := s.repo.Upsert(ctx, *record); err != nil {
		return fmt.Errorf("mark welcomed %d: %w", tgID, err)
	}
	return nil
}

func (s *Service) Block(ctx context.Context, tgID int64, reason enums.BlockReason) error {
	if s.repo == nil {
		return nil
	}

	record, err := s.repo.Get(ctx, tgID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", tgID, err)
	}
	if record == nil {
		record = &model.UserRecord{TGID: tgID, FirstSeen: s.now().UTC()}
	}

	now := s.now().UTC()
	record.Blocked = true
	record.BlockReason = reason
	record.BlockTime = &now
	record.UnblockTime = nil
	if err := s.repo.Upsert(ctx, *record); err != nil {
		return fmt.Errorf("block user %d: %w", tgID, err)
	}
	return nil
}

func (s *Service) Unblock(ctx context.Context, tgID int64) error {
	if s.repo == nil {
		return nil
	}

	record, err := s.repo.Get(ctx, tgID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", tgID, err)
	}
	if record == nil || !record.Blocked {
		return nil
	}

	now := s.now().UTC()
	record.Blocked = false
	record.BlockReason = enums.BlockReasonNone
	record.BlockTime = nil
	record.UnblockTime = &now
	if err := s.repo.Upsert(ctx, *record); err != nil {
		return fmt.Errorf("unblock user %d: %w", tgID, err)
	}
	return nil
}

// IsBlocked reports whether the user is currently blocked. A block older
// than BlockTTL has expired; it is cleared in the store on this read.
func (s *Service) IsBlocked(ctx context.Context, tgID int64) (bool, enums.BlockReason, error) {
	if s.repo == nil {
		return false, enums.BlockReasonNone, nil
	}

	record, err := s.repo.Get(ctx, tgID)
	if err != nil {
		return false, enums.BlockReasonNone, fmt.Errorf("get user %d: %w", tgID, err)
	}
	if record == nil || !record.Blocked {
		return false, enums.BlockReasonNone, nil
	}

	if record.BlockTime != nil && s.now().Sub(*record.BlockTime) >= BlockTTL {
		if err := s.Unblock(ctx, tgID); err != nil {
			return false, enums.BlockReasonNone, err
		}
		return false, enums.BlockReasonNone, nil
	}
	return true, record.BlockReason, nil
}

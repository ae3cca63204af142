package gate

import (
	"context"
	"log/slog"
	"sync"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
	"bot_gatekeeper/internal/services/moderation"
)

type Outcome int

const (
	Pass Outcome = iota
	Block
	Challenge
)

type ChallengeKind int

const (
	NoChallenge ChallengeKind = iota
	NeedsMembership
	NeedsIntroduction
	NeedsConsent
)

// Decision is the single terminal result of admitting one message. The
// gate mutates stores and audits; the caller performs all outbound sends
// based on the decision.
type Decision struct {
	Outcome     Outcome
	BlockReason enums.BlockReason
	Challenge   ChallengeKind
	ConsentType enums.ConsentType

	// IntroSubmitted is set when this message carried an introduction and
	// a pending record was created for operator review.
	IntroSubmitted bool
	Intro          *model.PendingIntroduction

	// FirstContact is set when this message created the user record.
	FirstContact bool
}

type UserGate interface {
	Touch(ctx context.Context, sender model.Sender) (model.UserRecord, bool, error)
	IsBlocked(ctx context.Context, tgID int64) (bool, enums.BlockReason, error)
	Block(ctx context.Context, tgID int64, reason enums.BlockReason) error
}

type MembershipGate interface {
	IsMemberOfAll(ctx context.Context, userID int64) bool
}

type ApprovalGate interface {
	IsApproved(ctx context.Context, tgID int64) (bool, error)
	Submit(ctx context.Context, sender model.Sender, introduction string) (model.PendingIntroduction, error)
}

type ConsentGate interface {
	HasConsent(ctx context.Context, tgID int64, consentType enums.ConsentType) (bool, error)
}

type Classifier interface {
	Classify(ctx context.Context, msg model.InboundMessage) moderation.Verdict
}

type Auditor interface {
	Log(ctx context.Context, sender model.Sender, chatID int64, isMember bool, action enums.AuditAction, kind enums.MessageKind)
}

// ExtractIntroduction reports whether a message routes to introduction
// submission.
type ExtractIntroduction func(text string) (string, bool)

type Config struct {
	AdminIDs        []int64
	RequiredConsent enums.ConsentType
}

// Service runs the fixed admission stages for every inbound private
// message. It never returns an error; every failure resolves to a
// Decision per the stage's fail-open or fail-closed rule.
type Service struct {
	users      UserGate
	membership MembershipGate
	approval   ApprovalGate
	consent    ConsentGate
	classifier Classifier
	audit      Auditor
	extract    ExtractIntroduction
	logger     *slog.Logger

	admins          map[int64]bool
	requiredConsent enums.ConsentType

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewService(
	users UserGate,
	membership MembershipGate,
	approval ApprovalGate,
	consent ConsentGate,
	classifier Classifier,
	audit Auditor,
	extract ExtractIntroduction,
	cfg Config,
	logger *slog.Logger,
) *Service {
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	return &Service{
		users:           users,
		membership:      membership,
		approval:        approval,
		consent:         consent,
		classifier:      classifier,
		audit:           audit,
		extract:         extract,
		logger:          logger,
		admins:          admins,
		requiredConsent: cfg.RequiredConsent,
		locks:           make(map[int64]*sync.Mutex),
	}
}

func (s *Service) IsAdmin(tgID int64) bool {
	return s.admins[tgID]
}

// userLock serializes admissions for one sender; different senders
// proceed concurrently.
func (s *Service) userLock(tgID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[tgID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tgID] = lock
	}
	return lock
}

// Admit runs the admission stages in fixed order, short-circuiting on the
// first non-pass outcome.
func (s *Service) Admit(ctx context.Context, sender model.Sender, msg model.InboundMessage) Decision {
	lock := s.userLock(sender.TGID)
	lock.Lock()
	defer lock.Unlock()

	_, firstContact, err := s.users.Touch(ctx, sender)
	if err != nil && s.logger != nil {
		s.logger.Error("touch user", "tg_id", sender.TGID, "err", err)
	}

	// 1. Blocked check. No oracle or classifier call for blocked users.
	blocked, _, err := s.users.IsBlocked(ctx, sender.TGID)
	if err != nil && s.logger != nil {
		s.logger.Error("blocked check", "tg_id", sender.TGID, "err", err)
	}
	if blocked {
		s.audit.Log(ctx, sender, msg.ChatID, false, enums.AuditActionSilentlyIgnored, msg.Kind)
		return Decision{Outcome: Block, BlockReason: enums.BlockReasonAlreadyBlocked, FirstContact: firstContact}
	}

	// 2. Membership, skipped for administrators. Unknown counts as
	// not-a-member.
	isMember := true
	if !s.admins[sender.TGID] {
		isMember = s.membership.IsMemberOfAll(ctx, sender.TGID)
		if !isMember {
			s.audit.Log(ctx, sender, msg.ChatID, false, enums.AuditActionMembershipChallenge, msg.Kind)
			return Decision{Outcome: Challenge, Challenge: NeedsMembership, FirstContact: firstContact}
		}
	}

	// 3. Approval / introduction.
	approved, err := s.approval.IsApproved(ctx, sender.TGID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("approval check", "tg_id", sender.TGID, "err", err)
		}
		approved = false
	}
	if !approved && !s.admins[sender.TGID] {
		if introduction, ok := s.extract(combinedText(msg)); ok {
			intro, err := s.approval.Submit(ctx, sender, introduction)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("submit introduction", "tg_id", sender.TGID, "err", err)
				}
				s.audit.Log(ctx, sender, msg.ChatID, isMember, enums.AuditActionIntroductionRequired, msg.Kind)
				return Decision{Outcome: Challenge, Challenge: NeedsIntroduction, FirstContact: firstContact}
			}
			s.audit.Log(ctx, sender, msg.ChatID, isMember, enums.AuditActionIntroductionReceived, msg.Kind)
			return Decision{
				Outcome:        Challenge,
				Challenge:      NeedsIntroduction,
				IntroSubmitted: true,
				Intro:          &intro,
				FirstContact:   firstContact,
			}
		}
		s.audit.Log(ctx, sender, msg.ChatID, isMember, enums.AuditActionIntroductionRequired, msg.Kind)
		return Decision{Outcome: Challenge, Challenge: NeedsIntroduction, FirstContact: firstContact}
	}

	// 4. Required consent, when configured.
	if s.requiredConsent != "" && s.consent != nil && !s.admins[sender.TGID] {
		has, err := s.consent.HasConsent(ctx, sender.TGID, s.requiredConsent)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("consent check", "tg_id", sender.TGID, "err", err)
			}
			has = false
		}
		if !has {
			s.audit.Log(ctx, sender, msg.ChatID, isMember, enums.AuditActionConsentRequired, msg.Kind)
			return Decision{
				Outcome:      Challenge,
				Challenge:    NeedsConsent,
				ConsentType:  s.requiredConsent,
				FirstContact: firstContact,
			}
		}
	}

	// 5. Content safety.
	verdict := s.classifier.Classify(ctx, msg)
	if verdict.Flagged {
		if err := s.users.Block(ctx, sender.TGID, verdict.Reason); err != nil && s.logger != nil {
			s.logger.Error("block user", "tg_id", sender.TGID, "err", err)
		}
		s.audit.Log(ctx, sender, msg.ChatID, isMember, enums.AuditActionContentBlocked, msg.Kind)
		return Decision{Outcome: Block, BlockReason: verdict.Reason, FirstContact: firstContact}
	}

	return Decision{Outcome: Pass, FirstContact: firstContact}
}

func combinedText(msg model.InboundMessage) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

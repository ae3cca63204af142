package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type Transport interface {
	Forward(ctx context.Context, toChatID, fromChatID int64, messageID int, silent bool) (int, error)
	ReplyText(chatID int64, replyToMessageID int, text string) error
	SendText(chatID int64, text string) error
}

type Welcomer interface {
	MarkWelcomed(ctx context.Context, tgID int64) error
}

type Auditor interface {
	Log(ctx context.Context, sender model.Sender, chatID int64, isMember bool, action enums.AuditAction, kind enums.MessageKind)
}

// MediaArchiver stores flagged media and hands back a time-limited link
// for the operator notice.
type MediaArchiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Result is the terminal outcome of one forward attempt. Failed means
// both the attempt and its single retry errored; it is never an error.
type Result struct {
	Delivered          bool
	Failed             bool
	ForwardedMessageID int
}

// Service routes admitted messages to the operator channel: silent
// forward, threaded metadata reply, welcome marking on first delivery.
type Service struct {
	transport       Transport
	welcomer        Welcomer
	audit           Auditor
	archiver        MediaArchiver
	operatorChannel int64
	logger          *slog.Logger
}

func NewService(transport Transport, welcomer Welcomer, audit Auditor, archiver MediaArchiver, operatorChannel int64, logger *slog.Logger) *Service {
	return &Service{
		transport:       transport,
		welcomer:        welcomer,
		audit:           audit,
		archiver:        archiver,
		operatorChannel: operatorChannel,
		logger:          logger,
	}
}

// Forward delivers the message to the operator channel. One immediate
// retry on transport error; a second failure resolves to Result.Failed.
func (s *Service) Forward(ctx context.Context, sender model.Sender, msg model.InboundMessage, isMember, firstDelivery bool) Result {
	forwardedID, err := s.transport.Forward(ctx, s.operatorChannel, msg.ChatID, msg.MessageID, true)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("forward failed, retrying", "tg_id", sender.TGID, "err", err)
		}
		forwardedID, err = s.transport.Forward(ctx, s.operatorChannel, msg.ChatID, msg.MessageID, true)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Error("forward failed after retry", "tg_id", sender.TGID, "err", err)
		}
		s.audit.Log(ctx, sender, msg.ChatID, isMember, enums.AuditActionDeliveryFailed, msg.Kind)
		return Result{Failed: true}
	}

	if err := s.transport.ReplyText(s.operatorChannel, forwardedID, metadataBlock(sender, msg)); err != nil && s.logger != nil {
		s.logger.Warn("metadata reply failed", "tg_id", sender.TGID, "err", err)
	}

	if firstDelivery && s.welcomer != nil {
		if err := s.welcomer.MarkWelcomed(ctx, sender.TGID); err != nil && s.logger != nil {
			s.logger.Error("mark welcomed", "tg_id", sender.TGID, "err", err)
		}
	}

	s.audit.Log(ctx, sender, msg.ChatID, isMember, enums.AuditActionDelivered, msg.Kind)
	return Result{Delivered: true, ForwardedMessageID: forwardedID}
}

// NotifyViolation forwards a flagged message silently to the operator
// channel, annotated with the block reason. Flagged media is archived
// and a short-lived link is attached. All failures are logged and
// swallowed.
func (s *Service) NotifyViolation(ctx context.Context, sender model.Sender, msg model.InboundMessage, reason enums.BlockReason) {
	forwardedID, err := s.transport.Forward(ctx, s.operatorChannel, msg.ChatID, msg.MessageID, true)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("forward violation", "tg_id", sender.TGID, "err", err)
		}
		return
	}

	notice := fmt.Sprintf("Blocked: %s\n%s", reason, metadataBlock(sender, msg))
	if link := s.archiveMedia(ctx, sender, msg); link != "" {
		notice += "\nArchived media: " + link
	}
	if err := s.transport.ReplyText(s.operatorChannel, forwardedID, notice); err != nil && s.logger != nil {
		s.logger.Warn("violation notice failed", "tg_id", sender.TGID, "err", err)
	}
}

func (s *Service) archiveMedia(ctx context.Context, sender model.Sender, msg model.InboundMessage) string {
	if s.archiver == nil || len(msg.MediaData) == 0 {
		return ""
	}

	key := fmt.Sprintf("violations/%d/%d", sender.TGID, msg.MessageID)
	if err := s.archiver.Archive(ctx, key, msg.MediaData, "application/octet-stream"); err != nil {
		if s.logger != nil {
			s.logger.Warn("archive flagged media", "tg_id", sender.TGID, "err", err)
		}
		return ""
	}
	link, err := s.archiver.PresignGet(ctx, key, 24*time.Hour)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("presign archived media", "tg_id", sender.TGID, "err", err)
		}
		return ""
	}
	return link
}

func metadataBlock(sender model.Sender, msg model.InboundMessage) string {
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	if name == "" {
		name = "(no name)"
	}
	handle := "(no username)"
	if sender.Username != "" {
		handle = "@" + sender.Username
	}
	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return fmt.Sprintf("From: %s %s\nID: %d\nMessage: %d\nSent: %s",
		name, handle, sender.TGID, msg.MessageID, sentAt.UTC().Format("2006-01-02 15:04:05"))
}

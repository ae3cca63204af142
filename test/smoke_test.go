package test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
	"bot_gatekeeper/internal/repo/jsonfile"
	"bot_gatekeeper/internal/services/approval"
	"bot_gatekeeper/internal/services/auditlog"
	consentsvc "bot_gatekeeper/internal/services/consent"
	"bot_gatekeeper/internal/services/gate"
	"bot_gatekeeper/internal/services/membership"
	"bot_gatekeeper/internal/services/moderation"
	userssvc "bot_gatekeeper/internal/services/users"
)

type stubStatusChecker struct {
	status string
}

func (s *stubStatusChecker) ChatMemberStatus(_ context.Context, _ int64, _ int64) (string, error) {
	return s.status, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newGate(t *testing.T, checker *stubStatusChecker) (*gate.Service, *approval.Service, *auditlog.Service) {
	t.Helper()
	dir := t.TempDir()
	logger := testLogger()

	usersRepo, err := jsonfile.NewUsersRepo(dir, logger)
	if err != nil {
		t.Fatalf("users repo: %v", err)
	}
	consentsRepo, err := jsonfile.NewConsentsRepo(dir, logger)
	if err != nil {
		t.Fatalf("consents repo: %v", err)
	}
	approvalsRepo, err := jsonfile.NewApprovalsRepo(dir, logger)
	if err != nil {
		t.Fatalf("approvals repo: %v", err)
	}
	auditRepo, err := jsonfile.NewAuditRepo(dir, logger)
	if err != nil {
		t.Fatalf("audit repo: %v", err)
	}

	users := userssvc.NewService(usersRepo)
	consents := consentsvc.NewService(consentsRepo, "1.0", time.Second)
	approvals := approval.NewService(approvalsRepo)
	members := membership.NewService(checker, []int64{-100}, logger)
	audit := auditlog.NewService(auditRepo, logger)
	classifier := moderation.NewClassifier(nil, nil, moderation.Config{}, logger)

	svc := gate.NewService(users, members, approvals, consents, classifier, audit,
		approval.ExtractIntroduction, gate.Config{}, logger)
	return svc, approvals, audit
}

func textMessage(text string) model.InboundMessage {
	return model.InboundMessage{
		MessageID: 1,
		ChatID:    1000,
		Kind:      enums.MessageText,
		Text:      text,
		SentAt:    time.Now(),
	}
}

// TestAdmissionFlow walks a new user through the whole pipeline: join
// the channel, introduce themselves, get approved, then get through.
func TestAdmissionFlow(t *testing.T) {
	checker := &stubStatusChecker{status: "left"}
	svc, approvals, _ := newGate(t, checker)
	ctx := context.Background()
	sender := model.Sender{TGID: 1000, Username: "newcomer", FirstName: "Nora"}

	decision := svc.Admit(ctx, sender, textMessage("hello"))
	if decision.Outcome != gate.Challenge || decision.Challenge != gate.NeedsMembership {
		t.Fatalf("expected membership challenge, got %+v", decision)
	}
	if !decision.FirstContact {
		t.Fatal("expected first contact flag on the first message")
	}

	checker.status = "member"
	decision = svc.Admit(ctx, sender, textMessage("hello again"))
	if decision.Outcome != gate.Challenge || decision.Challenge != gate.NeedsIntroduction {
		t.Fatalf("expected introduction challenge, got %+v", decision)
	}
	if decision.IntroSubmitted {
		t.Fatal("plain text must not count as an introduction")
	}

	decision = svc.Admit(ctx, sender, textMessage("INTRODUCTION: I am Nora, a translator."))
	if !decision.IntroSubmitted || decision.Intro == nil {
		t.Fatalf("expected a submitted introduction, got %+v", decision)
	}

	if err := approvals.Approve(ctx, sender.TGID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	decision = svc.Admit(ctx, sender, textMessage("can you help me?"))
	if decision.Outcome != gate.Pass {
		t.Fatalf("expected pass after approval, got %+v", decision)
	}
}

func TestAdmissionBlocksFlaggedContent(t *testing.T) {
	checker := &stubStatusChecker{status: "member"}
	svc, approvals, audit := newGate(t, checker)
	ctx := context.Background()
	sender := model.Sender{TGID: 2000, Username: "spammer"}

	if err := approvals.Approve(ctx, sender.TGID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	decision := svc.Admit(ctx, sender, textMessage("buy cheap nude pics"))
	if decision.Outcome != gate.Block {
		t.Fatalf("expected block, got %+v", decision)
	}
	if decision.BlockReason != enums.BlockReasonSexualContent {
		t.Fatalf("unexpected block reason %s", decision.BlockReason)
	}

	// A follow-up from the blocked user is silently ignored.
	decision = svc.Admit(ctx, sender, textMessage("hello?"))
	if decision.Outcome != gate.Block || decision.BlockReason != enums.BlockReasonAlreadyBlocked {
		t.Fatalf("expected silent ignore, got %+v", decision)
	}

	entries, err := audit.HistoryFor(ctx, sender.TGID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var blocked, ignored bool
	for _, entry := range entries {
		switch entry.Action {
		case enums.AuditActionContentBlocked:
			blocked = true
		case enums.AuditActionSilentlyIgnored:
			ignored = true
		}
	}
	if !blocked || !ignored {
		t.Fatalf("expected content-blocked and silently-ignored audit entries, got %+v", entries)
	}
}

func TestAdmissionPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	logger := testLogger()

	repo, err := jsonfile.NewApprovalsRepo(dir, logger)
	if err != nil {
		t.Fatalf("approvals repo: %v", err)
	}
	svc := approval.NewService(repo)
	ctx := context.Background()

	if err := svc.Approve(ctx, 3000); err != nil {
		t.Fatalf("approve: %v", err)
	}

	reopened, err := jsonfile.NewApprovalsRepo(dir, logger)
	if err != nil {
		t.Fatalf("reopen approvals repo: %v", err)
	}
	ok, err := approval.NewService(reopened).IsApproved(ctx, 3000)
	if err != nil {
		t.Fatalf("is approved: %v", err)
	}
	if !ok {
		t.Fatal("expected approval to survive a restart")
	}
}

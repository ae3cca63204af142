package gate

import (
	"context"
	"sync"
	"testing"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
	"bot_gatekeeper/internal/services/approval"
	"bot_gatekeeper/internal/services/moderation"
)

type stubUsers struct {
	mu        sync.Mutex
	blocked   map[int64]enums.BlockReason
	touched   map[int64]int
	blockCall int
}

func newStubUsers() *stubUsers {
	return &stubUsers{blocked: make(map[int64]enums.BlockReason), touched: make(map[int64]int)}
}

func (u *stubUsers) Touch(_ context.Context, sender model.Sender) (model.UserRecord, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.touched[sender.TGID]++
	return model.UserRecord{TGID: sender.TGID}, u.touched[sender.TGID] == 1, nil
}

func (u *stubUsers) IsBlocked(_ context.Context, tgID int64) (bool, enums.BlockReason, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	reason, ok := u.blocked[tgID]
	return ok, reason, nil
}

func (u *stubUsers) Block(_ context.Context, tgID int64, reason enums.BlockReason) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blocked[tgID] = reason
	u.blockCall++
	return nil
}

type stubMembership struct {
	mu     sync.Mutex
	member bool
	calls  int
}

func (m *stubMembership) IsMemberOfAll(context.Context, int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.member
}

type stubApproval struct {
	approved  map[int64]bool
	submitted []model.PendingIntroduction
}

func newStubApproval() *stubApproval {
	return &stubApproval{approved: make(map[int64]bool)}
}

func (a *stubApproval) IsApproved(_ context.Context, tgID int64) (bool, error) {
	return a.approved[tgID], nil
}

func (a *stubApproval) Submit(_ context.Context, sender model.Sender, introduction string) (model.PendingIntroduction, error) {
	intro := model.PendingIntroduction{TGID: sender.TGID, Introduction: introduction}
	a.submitted = append(a.submitted, intro)
	return intro, nil
}

type stubConsent struct {
	granted map[int64]bool
}

func (c *stubConsent) HasConsent(_ context.Context, tgID int64, _ enums.ConsentType) (bool, error) {
	return c.granted[tgID], nil
}

type stubClassifier struct {
	mu      sync.Mutex
	verdict moderation.Verdict
	calls   int
}

func (c *stubClassifier) Classify(context.Context, model.InboundMessage) moderation.Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.verdict
}

type stubAuditor struct {
	mu      sync.Mutex
	actions []enums.AuditAction
}

func (a *stubAuditor) Log(_ context.Context, _ model.Sender, _ int64, _ bool, action enums.AuditAction, _ enums.MessageKind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

type fixture struct {
	users      *stubUsers
	membership *stubMembership
	approval   *stubApproval
	consent    *stubConsent
	classifier *stubClassifier
	auditor    *stubAuditor
	svc        *Service
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		users:      newStubUsers(),
		membership: &stubMembership{member: true},
		approval:   newStubApproval(),
		consent:    &stubConsent{granted: make(map[int64]bool)},
		classifier: &stubClassifier{},
		auditor:    &stubAuditor{},
	}
	f.svc = NewService(f.users, f.membership, f.approval, f.consent, f.classifier, f.auditor, approval.ExtractIntroduction, cfg, nil)
	return f
}

func textMsg(text string) model.InboundMessage {
	return model.InboundMessage{ChatID: 1, Kind: enums.MessageText, Text: text}
}

// Scenario: a blocked user's message is ignored without probing any
// external check.
func TestAdmitBlockedShortCircuits(t *testing.T) {
	f := newFixture(Config{})
	f.users.blocked[7] = enums.BlockReasonSpam

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 7}, textMsg("hello"))

	if decision.Outcome != Block || decision.BlockReason != enums.BlockReasonAlreadyBlocked {
		t.Fatalf("expected Block(already_blocked), got %+v", decision)
	}
	if f.membership.calls != 0 || f.classifier.calls != 0 {
		t.Fatalf("expected no oracle or classifier calls, got membership=%d classifier=%d", f.membership.calls, f.classifier.calls)
	}
	if len(f.auditor.actions) != 1 || f.auditor.actions[0] != enums.AuditActionSilentlyIgnored {
		t.Fatalf("expected SILENTLY_IGNORED audit, got %v", f.auditor.actions)
	}
}

// Scenario A: unapproved non-member sending plain text.
func TestAdmitNonMemberChallenged(t *testing.T) {
	f := newFixture(Config{})
	f.membership.member = false

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("hi"))

	if decision.Outcome != Challenge || decision.Challenge != NeedsMembership {
		t.Fatalf("expected Challenge(NeedsMembership), got %+v", decision)
	}
	if f.classifier.calls != 0 {
		t.Fatal("classifier must not run for non-members")
	}
}

// Scenario B: member without approval sending an introduction-marked
// message.
func TestAdmitIntroductionSubmission(t *testing.T) {
	f := newFixture(Config{})

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("INTRODUCTION: hi, I'm new"))

	if decision.Outcome != Challenge || decision.Challenge != NeedsIntroduction || !decision.IntroSubmitted {
		t.Fatalf("expected introduction challenge with submission, got %+v", decision)
	}
	if len(f.approval.submitted) != 1 || f.approval.submitted[0].Introduction != "hi, I'm new" {
		t.Fatalf("unexpected submission: %+v", f.approval.submitted)
	}
	if f.auditor.actions[len(f.auditor.actions)-1] != enums.AuditActionIntroductionReceived {
		t.Fatalf("expected INTRODUCTION_RECEIVED audit, got %v", f.auditor.actions)
	}
}

func TestAdmitUnapprovedWithoutMarker(t *testing.T) {
	f := newFixture(Config{})

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("just saying hi"))

	if decision.Outcome != Challenge || decision.Challenge != NeedsIntroduction || decision.IntroSubmitted {
		t.Fatalf("expected first-contact introduction prompt, got %+v", decision)
	}
	if len(f.approval.submitted) != 0 {
		t.Fatal("no submission expected without the marker")
	}
}

// Scenario C: approved member sending text matching two distinct spam
// families.
func TestAdmitSpamBlocksAndPersists(t *testing.T) {
	f := newFixture(Config{})
	f.approval.approved[1] = true
	f.classifier.verdict = moderation.Verdict{Flagged: true, Reason: enums.BlockReasonSpam}

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("limited offer, guaranteed profit"))

	if decision.Outcome != Block || decision.BlockReason != enums.BlockReasonSpam {
		t.Fatalf("expected Block(spam), got %+v", decision)
	}
	if f.users.blocked[1] != enums.BlockReasonSpam {
		t.Fatal("expected block persisted in user store")
	}
	if f.auditor.actions[len(f.auditor.actions)-1] != enums.AuditActionContentBlocked {
		t.Fatalf("expected CONTENT_BLOCKED audit, got %v", f.auditor.actions)
	}
}

// Scenario D/F: approved member with a clean verdict passes untouched.
func TestAdmitCleanPass(t *testing.T) {
	f := newFixture(Config{})
	f.approval.approved[1] = true

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("hello there"))

	if decision.Outcome != Pass {
		t.Fatalf("expected Pass, got %+v", decision)
	}
	if len(f.users.blocked) != 0 {
		t.Fatal("clean pass must not mutate block state")
	}
}

func TestAdmitAdminSkipsMembershipAndApproval(t *testing.T) {
	f := newFixture(Config{AdminIDs: []int64{99}})
	f.membership.member = false

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 99}, textMsg("admin ping"))

	if decision.Outcome != Pass {
		t.Fatalf("expected admin pass, got %+v", decision)
	}
	if f.membership.calls != 0 {
		t.Fatal("membership oracle must not be probed for admins")
	}
}

func TestAdmitRequiredConsent(t *testing.T) {
	f := newFixture(Config{RequiredConsent: enums.ConsentDataProcessing})
	f.approval.approved[1] = true

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("hello"))
	if decision.Outcome != Challenge || decision.Challenge != NeedsConsent || decision.ConsentType != enums.ConsentDataProcessing {
		t.Fatalf("expected consent challenge, got %+v", decision)
	}

	f.consent.granted[1] = true
	decision = f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("hello"))
	if decision.Outcome != Pass {
		t.Fatalf("expected pass after consent, got %+v", decision)
	}
}

// Two concurrent messages from one sender must serialize: both resolve,
// and at most one block write happens for a flagged pair.
func TestAdmitSameUserRaceSerialized(t *testing.T) {
	f := newFixture(Config{})
	f.approval.approved[1] = true
	f.classifier.verdict = moderation.Verdict{Flagged: true, Reason: enums.BlockReasonSexualContent}

	var wg sync.WaitGroup
	decisions := make([]Decision, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i] = f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("nude pics here"))
		}(i)
	}
	wg.Wait()

	blocks := 0
	for _, decision := range decisions {
		if decision.Outcome != Block {
			t.Fatalf("expected both admissions to block, got %+v", decision)
		}
		if decision.BlockReason == enums.BlockReasonSexualContent {
			blocks++
		}
	}
	// The second admission sees the persisted block and short-circuits.
	if blocks != 1 {
		t.Fatalf("expected exactly one fresh content block, got %d", blocks)
	}
	if f.users.blockCall != 1 {
		t.Fatalf("expected one block write, got %d", f.users.blockCall)
	}
}

func TestAdmitFirstContactFlag(t *testing.T) {
	f := newFixture(Config{})
	f.approval.approved[1] = true

	decision := f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("hi"))
	if !decision.FirstContact {
		t.Fatal("expected first contact on first admission")
	}
	decision = f.svc.Admit(context.Background(), model.Sender{TGID: 1}, textMsg("hi again"))
	if decision.FirstContact {
		t.Fatal("expected known user on second admission")
	}
}

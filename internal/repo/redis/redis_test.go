package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestUsersRepoRoundtrip(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewUsersRepo(client)
	ctx := context.Background()

	record := model.UserRecord{
		TGID:      42,
		Username:  "someone",
		FirstSeen: time.Now().UTC().Truncate(time.Second),
		Welcomed:  true,
	}
	if err := repo.Upsert(ctx, record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Username != "someone" || !got.Welcomed {
		t.Fatalf("unexpected record: %+v", got)
	}

	if missing, err := repo.Get(ctx, 99); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown user, got %+v err %v", missing, err)
	}

	if err := repo.Upsert(ctx, model.UserRecord{TGID: 7, FirstSeen: record.FirstSeen}); err != nil {
		t.Fatalf("upsert second user: %v", err)
	}
	records, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].TGID != 7 {
		t.Fatalf("unexpected list order: %+v", records)
	}
}

func TestConsentsRepoPerTypeFields(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewConsentsRepo(client)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := repo.Put(ctx, model.ConsentRecord{TGID: 7, Type: enums.ConsentContactSave, Status: enums.ConsentGranted, Timestamp: now, Version: "1.0"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, model.ConsentRecord{TGID: 7, Type: enums.ConsentMigration, Status: enums.ConsentDenied, Timestamp: now, Version: "1.0"}); err != nil {
		t.Fatalf("put migration consent: %v", err)
	}

	got, err := repo.Get(ctx, 7, enums.ConsentMigration)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Status != enums.ConsentDenied {
		t.Fatalf("unexpected consent: %+v", got)
	}

	all, err := repo.ListFor(ctx, 7)
	if err != nil {
		t.Fatalf("list for: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 consents, got %d", len(all))
	}
}

func TestApprovalsRepoApproveClearsPending(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewApprovalsRepo(client)
	ctx := context.Background()

	intro := model.PendingIntroduction{TGID: 5, Name: "A", Introduction: "hello", SubmittedAt: time.Now().UTC().Truncate(time.Second)}
	if err := repo.PutPending(ctx, intro); err != nil {
		t.Fatalf("put pending: %v", err)
	}

	approved, err := repo.IsApproved(ctx, 5)
	if err != nil {
		t.Fatalf("is approved: %v", err)
	}
	if approved {
		t.Fatal("expected user not approved before review")
	}

	if err := repo.Approve(ctx, 5); err != nil {
		t.Fatalf("approve: %v", err)
	}
	approved, err = repo.IsApproved(ctx, 5)
	if err != nil {
		t.Fatalf("is approved after: %v", err)
	}
	if !approved {
		t.Fatal("expected user approved")
	}
	if pending, err := repo.GetPending(ctx, 5); err != nil || pending != nil {
		t.Fatalf("expected pending cleared, got %+v err %v", pending, err)
	}
}

func TestAuditRepoListSince(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewAuditRepo(client)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	entries := []model.AuditEntry{
		{ID: "a", Timestamp: base.Add(-2 * time.Hour), TGID: 1, Action: enums.AuditActionDelivered},
		{ID: "b", Timestamp: base.Add(-time.Minute), TGID: 1, Action: enums.AuditActionContentBlocked},
		{ID: "c", Timestamp: base, TGID: 2, Action: enums.AuditActionDelivered},
	}
	for _, entry := range entries {
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("append %s: %v", entry.ID, err)
		}
	}

	byUser, err := repo.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 entries for user 1, got %d", len(byUser))
	}

	recent, err := repo.ListSince(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent entries, got %d", len(recent))
	}
	if recent[0].ID != "b" || recent[1].ID != "c" {
		t.Fatalf("expected chronological order, got %+v", recent)
	}
}

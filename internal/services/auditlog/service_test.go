package auditlog

import (
	"context"
	"strings"
	"testing"
	"time"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type stubRepo struct {
	entries []model.AuditEntry
}

func (r *stubRepo) Append(_ context.Context, entry model.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubRepo) ListByUser(_ context.Context, tgID int64) ([]model.AuditEntry, error) {
	var matched []model.AuditEntry
	for _, entry := range r.entries {
		if entry.TGID == tgID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (r *stubRepo) ListSince(_ context.Context, since time.Time) ([]model.AuditEntry, error) {
	var matched []model.AuditEntry
	for _, entry := range r.entries {
		if !entry.Timestamp.Before(since) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func TestLogAssignsIDAndTimestamp(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)

	svc.Log(context.Background(), model.Sender{TGID: 1, Username: "a"}, 10, true, enums.AuditActionDelivered, enums.MessageText)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.ID == "" || entry.Timestamp.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", entry)
	}
	if !entry.IsMember || entry.ChatID != 10 {
		t.Fatalf("unexpected entry fields: %+v", entry)
	}
}

func TestReportCountsActionsAndUsers(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	svc.Log(ctx, model.Sender{TGID: 1}, 0, true, enums.AuditActionDelivered, enums.MessageText)
	svc.Log(ctx, model.Sender{TGID: 1}, 0, true, enums.AuditActionDelivered, enums.MessageText)
	svc.Log(ctx, model.Sender{TGID: 2}, 0, false, enums.AuditActionContentBlocked, enums.MessagePhoto)

	report, err := svc.Report(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(report, "Messages: 3, users: 2") {
		t.Fatalf("unexpected totals in report:\n%s", report)
	}
	if !strings.Contains(report, "DELIVERED: 2") || !strings.Contains(report, "CONTENT_BLOCKED: 1") {
		t.Fatalf("unexpected action counts in report:\n%s", report)
	}
}

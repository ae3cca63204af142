package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, entry model.AuditEntry) error {
	if r.db == nil {
		return nil
	}
	if entry.ID == "" {
		return fmt.Errorf("invalid audit entry id")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gate_audit (id, ts, tg_id, username, chat_id, is_member, action, message_kind)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, entry.ID, entry.Timestamp, entry.TGID, entry.Username, entry.ChatID,
		entry.IsMember, string(entry.Action), string(entry.MessageKind))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByUser(ctx context.Context, tgID int64) ([]model.AuditEntry, error) {
	if r.db == nil {
		return nil, nil
	}
	return r.query(ctx, `
		SELECT id, ts, tg_id, username, chat_id, is_member, action, message_kind
		FROM gate_audit
		WHERE tg_id = $1
		ORDER BY ts
	`, tgID)
}

func (r *AuditRepo) ListSince(ctx context.Context, since time.Time) ([]model.AuditEntry, error) {
	if r.db == nil {
		return nil, nil
	}
	return r.query(ctx, `
		SELECT id, ts, tg_id, username, chat_id, is_member, action, message_kind
		FROM gate_audit
		WHERE ts >= $1
		ORDER BY ts
	`, since)
}

func (r *AuditRepo) query(ctx context.Context, q string, arg any) ([]model.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var entry model.AuditEntry
		var username sql.NullString
		var action, kind string
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.TGID, &username,
			&entry.ChatID, &entry.IsMember, &action, &kind); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Username = username.String
		entry.Action = enums.AuditAction(action)
		entry.MessageKind = enums.MessageKind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

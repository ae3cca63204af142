package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bot_gatekeeper/internal/domain/model"
)

type ApprovalsRepo struct {
	db *sql.DB
}

func NewApprovalsRepo(db *sql.DB) *ApprovalsRepo {
	return &ApprovalsRepo{db: db}
}

func (r *ApprovalsRepo) IsApproved(ctx context.Context, tgID int64) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM gate_approved WHERE tg_id = $1)
	`, tgID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check approval: %w", err)
	}
	return exists, nil
}

func (r *ApprovalsRepo) Approve(ctx context.Context, tgID int64) error {
	if r.db == nil {
		return nil
	}
	if tgID == 0 {
		return fmt.Errorf("invalid tg id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gate_approved (tg_id, approved_at)
		VALUES ($1, NOW())
		ON CONFLICT (tg_id) DO NOTHING
	`, tgID); err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM gate_intro_pending WHERE tg_id = $1
	`, tgID); err != nil {
		return fmt.Errorf("clear pending introduction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) Revoke(ctx context.Context, tgID int64) error {
	if r.db == nil {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM gate_approved WHERE tg_id = $1
	`, tgID); err != nil {
		return fmt.Errorf("revoke approval: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) PutPending(ctx context.Context, intro model.PendingIntroduction) error {
	if r.db == nil {
		return nil
	}
	if intro.TGID == 0 {
		return fmt.Errorf("invalid tg id")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gate_intro_pending (tg_id, name, username, introduction, submitted_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (tg_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			username = EXCLUDED.username,
			introduction = EXCLUDED.introduction,
			submitted_at = EXCLUDED.submitted_at
	`, intro.TGID, intro.Name, intro.Username, intro.Introduction, intro.SubmittedAt)
	if err != nil {
		return fmt.Errorf("upsert pending introduction: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) GetPending(ctx context.Context, tgID int64) (*model.PendingIntroduction, error) {
	if r.db == nil {
		return nil, nil
	}

	var intro model.PendingIntroduction
	var username sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT tg_id, name, username, introduction, submitted_at
		FROM gate_intro_pending
		WHERE tg_id = $1
		LIMIT 1
	`, tgID).Scan(&intro.TGID, &intro.Name, &username, &intro.Introduction, &intro.SubmittedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending introduction: %w", err)
	}

	intro.Username = username.String
	return &intro, nil
}

func (r *ApprovalsRepo) DeletePending(ctx context.Context, tgID int64) error {
	if r.db == nil {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM gate_intro_pending WHERE tg_id = $1
	`, tgID); err != nil {
		return fmt.Errorf("delete pending introduction: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) ListPending(ctx context.Context) ([]model.PendingIntroduction, error) {
	if r.db == nil {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT tg_id, name, username, introduction, submitted_at
		FROM gate_intro_pending
		ORDER BY submitted_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending introductions: %w", err)
	}
	defer rows.Close()

	var intros []model.PendingIntroduction
	for rows.Next() {
		var intro model.PendingIntroduction
		var username sql.NullString
		if err := rows.Scan(&intro.TGID, &intro.Name, &username, &intro.Introduction, &intro.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan pending introduction: %w", err)
		}
		intro.Username = username.String
		intros = append(intros, intro)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending introductions: %w", err)
	}
	return intros, nil
}

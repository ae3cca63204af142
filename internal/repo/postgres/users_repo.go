package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Get(ctx context.Context, tgID int64) (*model.UserRecord, error) {
	if r.db == nil {
		return nil, nil
	}
	if tgID == 0 {
		return nil, fmt.Errorf("invalid tg id")
	}

	var record model.UserRecord
	var username, firstName, lastName sql.NullString
	var blockReason sql.NullString
	var blockTime, unblockTime sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT tg_id, username, first_name, last_name, first_seen, welcomed,
		       blocked, block_reason, block_time, unblock_time
		FROM gate_users
		WHERE tg_id = $1
		LIMIT 1
	`, tgID).Scan(
		&record.TGID, &username, &firstName, &lastName, &record.FirstSeen,
		&record.Welcomed, &record.Blocked, &blockReason, &blockTime, &unblockTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	record.Username = username.String
	record.FirstName = firstName.String
	record.LastName = lastName.String
	record.BlockReason = enums.BlockReason(blockReason.String)
	if blockTime.Valid {
		t := blockTime.Time
		record.BlockTime = &t
	}
	if unblockTime.Valid {
		t := unblockTime.Time
		record.UnblockTime = &t
	}
	return &record, nil
}

func (r *UsersRepo) Upsert(ctx context.Context, record model.UserRecord) error {
	if r.db == nil {
		return nil
	}
	if record.TGID == 0 {
		return fmt.Errorf("invalid tg id")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gate_users (tg_id, username, first_name, last_name, first_seen,
		                        welcomed, blocked, block_reason, block_time, unblock_time)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), $9, $10)
		ON CONFLICT (tg_id)
		DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			welcomed = EXCLUDED.welcomed,
			blocked = EXCLUDED.blocked,
			block_reason = EXCLUDED.block_reason,
			block_time = EXCLUDED.block_time,
			unblock_time = EXCLUDED.unblock_time
	`, record.TGID, record.Username, record.FirstName, record.LastName, record.FirstSeen,
		record.Welcomed, record.Blocked, string(record.BlockReason), record.BlockTime, record.UnblockTime)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]model.UserRecord, error) {
	if r.db == nil {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT tg_id, username, first_name, last_name, first_seen, welcomed,
		       blocked, block_reason, block_time, unblock_time
		FROM gate_users
		ORDER BY tg_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var records []model.UserRecord
	for rows.Next() {
		var record model.UserRecord
		var username, firstName, lastName, blockReason sql.NullString
		var blockTime, unblockTime sql.NullTime
		if err := rows.Scan(
			&record.TGID, &username, &firstName, &lastName, &record.FirstSeen,
			&record.Welcomed, &record.Blocked, &blockReason, &blockTime, &unblockTime,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		record.Username = username.String
		record.FirstName = firstName.String
		record.LastName = lastName.String
		record.BlockReason = enums.BlockReason(blockReason.String)
		if blockTime.Valid {
			t := blockTime.Time
			record.BlockTime = &t
		}
		if unblockTime.Valid {
			t := unblockTime.Time
			record.UnblockTime = &t
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return records, nil
}

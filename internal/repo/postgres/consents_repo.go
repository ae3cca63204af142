package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type ConsentsRepo struct {
	db *sql.DB
}

func NewConsentsRepo(db *sql.DB) *ConsentsRepo {
	return &ConsentsRepo{db: db}
}

func (r *ConsentsRepo) Get(ctx context.Context, tgID int64, consentType enums.ConsentType) (*model.ConsentRecord, error) {
	if r.db == nil {
		return nil, nil
	}
	if tgID == 0 {
		return nil, fmt.Errorf("invalid tg id")
	}

	var record model.ConsentRecord
	var rawType, rawStatus string
	err := r.db.QueryRowContext(ctx, `
		SELECT tg_id, consent_type, status, recorded_at, version
		FROM gate_consents
		WHERE tg_id = $1 AND consent_type = $2
		LIMIT 1
	`, tgID, string(consentType)).Scan(&record.TGID, &rawType, &rawStatus, &record.Timestamp, &record.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get consent: %w", err)
	}

	record.Type = enums.ConsentType(rawType)
	record.Status = enums.ConsentStatus(rawStatus)
	return &record, nil
}

func (r *ConsentsRepo) Put(ctx context.Context, record model.ConsentRecord) error {
	if r.db == nil {
		return nil
	}
	if record.TGID == 0 {
		return fmt.Errorf("invalid tg id")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gate_consents (tg_id, consent_type, status, recorded_at, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tg_id, consent_type)
		DO UPDATE SET
			status = EXCLUDED.status,
			recorded_at = EXCLUDED.recorded_at,
			version = EXCLUDED.version
	`, record.TGID, string(record.Type), string(record.Status), record.Timestamp, record.Version)
	if err != nil {
		return fmt.Errorf("upsert consent: %w", err)
	}
	return nil
}

func (r *ConsentsRepo) ListFor(ctx context.Context, tgID int64) ([]model.ConsentRecord, error) {
	if r.db == nil {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT tg_id, consent_type, status, recorded_at, version
		FROM gate_consents
		WHERE tg_id = $1
	`, tgID)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []model.ConsentRecord
	for rows.Next() {
		var record model.ConsentRecord
		var rawType, rawStatus string
		if err := rows.Scan(&record.TGID, &rawType, &rawStatus, &record.Timestamp, &record.Version); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		record.Type = enums.ConsentType(rawType)
		record.Status = enums.ConsentStatus(rawStatus)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

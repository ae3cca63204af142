package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type ConsentsRepo struct {
	client *goredis.Client
}

func NewConsentsRepo(client *goredis.Client) *ConsentsRepo {
	return &ConsentsRepo{client: client}
}

func (r *ConsentsRepo) Get(ctx context.Context, tgID int64, consentType enums.ConsentType) (*model.ConsentRecord, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.HGet(ctx, consentKey(tgID), string(consentType)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get consent: %w", err)
	}

	var record model.ConsentRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode consent %d/%s: %w", tgID, consentType, err)
	}
	return &record, nil
}

func (r *ConsentsRepo) Put(ctx context.Context, record model.ConsentRecord) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode consent %d/%s: %w", record.TGID, record.Type, err)
	}
	if err := r.client.HSet(ctx, consentKey(record.TGID), string(record.Type), raw).Err(); err != nil {
		return fmt.Errorf("set consent: %w", err)
	}
	return nil
}

func (r *ConsentsRepo) ListFor(ctx context.Context, tgID int64) ([]model.ConsentRecord, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	values, err := r.client.HGetAll(ctx, consentKey(tgID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}

	records := make([]model.ConsentRecord, 0, len(values))
	for field, raw := range values {
		var record model.ConsentRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode consent %d/%s: %w", tgID, field, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func consentKey(tgID int64) string {
	return "gate:consent:" + strconv.FormatInt(tgID, 10)
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"bot_gatekeeper/internal/domain/model"
)

type UsersRepo struct {
	client *goredis.Client
}

func NewUsersRepo(client *goredis.Client) *UsersRepo {
	return &UsersRepo{client: client}
}

func (r *UsersRepo) Get(ctx context.Context, tgID int64) (*model.UserRecord, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, userKey(tgID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	var record model.UserRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", tgID, err)
	}
	return &record, nil
}

func (r *UsersRepo) Upsert(ctx context.Context, record model.UserRecord) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode user %d: %w", record.TGID, err)
	}
	if err := r.client.Set(ctx, userKey(record.TGID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]model.UserRecord, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	var records []model.UserRecord
	iter := r.client.Scan(ctx, 0, "gate:user:*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == goredis.Nil {
				continue
			}
			return nil, fmt.Errorf("get user %s: %w", iter.Val(), err)
		}
		var record model.UserRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", iter.Val(), err)
		}
		records = append(records, record)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].TGID < records[j].TGID })
	return records, nil
}

func userKey(tgID int64) string {
	return "gate:user:" + strconv.FormatInt(tgID, 10)
}

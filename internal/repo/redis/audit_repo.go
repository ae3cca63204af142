package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"bot_gatekeeper/internal/domain/model"
)

type AuditRepo struct {
	client *goredis.Client
}

func NewAuditRepo(client *goredis.Client) *AuditRepo {
	return &AuditRepo{client: client}
}

func (r *AuditRepo) Append(ctx context.Context, entry model.AuditEntry) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry %s: %w", entry.ID, err)
	}
	if err := r.client.RPush(ctx, auditKey(entry.TGID), raw).Err(); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByUser(ctx context.Context, tgID int64) ([]model.AuditEntry, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return r.readList(ctx, auditKey(tgID))
}

func (r *AuditRepo) ListSince(ctx context.Context, since time.Time) ([]model.AuditEntry, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	var entries []model.AuditEntry
	iter := r.client.Scan(ctx, 0, "gate:audit:*", 100).Iterator()
	for iter.Next(ctx) {
		listed, err := r.readList(ctx, iter.Val())
		if err != nil {
			return nil, err
		}
		for _, entry := range listed {
			if !entry.Timestamp.Before(since) {
				entries = append(entries, entry)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan audit keys: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}

func (r *AuditRepo) readList(ctx context.Context, key string) ([]model.AuditEntry, error) {
	values, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit list %s: %w", key, err)
	}

	entries := make([]model.AuditEntry, 0, len(values))
	for _, raw := range values {
		var entry model.AuditEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry in %s: %w", key, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func auditKey(tgID int64) string {
	return "gate:audit:" + strconv.FormatInt(tgID, 10)
}

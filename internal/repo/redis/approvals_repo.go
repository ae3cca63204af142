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

const (
	approvedSetKey = "gate:approved"
	pendingHashKey = "gate:intro_pending"
)

type ApprovalsRepo struct {
	client *goredis.Client
}

func NewApprovalsRepo(client *goredis.Client) *ApprovalsRepo {
	return &ApprovalsRepo{client: client}
}

func (r *ApprovalsRepo) IsApproved(ctx context.Context, tgID int64) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	approved, err := r.client.SIsMember(ctx, approvedSetKey, strconv.FormatInt(tgID, 10)).Result()
	if err != nil {
		return false, fmt.Errorf("check approval: %w", err)
	}
	return approved, nil
}

func (r *ApprovalsRepo) Approve(ctx context.Context, tgID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	member := strconv.FormatInt(tgID, 10)
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, approvedSetKey, member)
	pipe.HDel(ctx, pendingHashKey, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("approve user: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) Revoke(ctx context.Context, tgID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.SRem(ctx, approvedSetKey, strconv.FormatInt(tgID, 10)).Err(); err != nil {
		return fmt.Errorf("revoke approval: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) PutPending(ctx context.Context, intro model.PendingIntroduction) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	raw, err := json.Marshal(intro)
	if err != nil {
		return fmt.Errorf("encode pending introduction %d: %w", intro.TGID, err)
	}
	if err := r.client.HSet(ctx, pendingHashKey, strconv.FormatInt(intro.TGID, 10), raw).Err(); err != nil {
		return fmt.Errorf("set pending introduction: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) GetPending(ctx context.Context, tgID int64) (*model.PendingIntroduction, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.HGet(ctx, pendingHashKey, strconv.FormatInt(tgID, 10)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending introduction: %w", err)
	}

	var intro model.PendingIntroduction
	if err := json.Unmarshal([]byte(raw), &intro); err != nil {
		return nil, fmt.Errorf("decode pending introduction %d: %w", tgID, err)
	}
	return &intro, nil
}

func (r *ApprovalsRepo) DeletePending(ctx context.Context, tgID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	if err := r.client.HDel(ctx, pendingHashKey, strconv.FormatInt(tgID, 10)).Err(); err != nil {
		return fmt.Errorf("delete pending introduction: %w", err)
	}
	return nil
}

func (r *ApprovalsRepo) ListPending(ctx context.Context) ([]model.PendingIntroduction, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	values, err := r.client.HGetAll(ctx, pendingHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending introductions: %w", err)
	}

	intros := make([]model.PendingIntroduction, 0, len(values))
	for field, raw := range values {
		var intro model.PendingIntroduction
		if err := json.Unmarshal([]byte(raw), &intro); err != nil {
			return nil, fmt.Errorf("decode pending introduction %s: %w", field, err)
		}
		intros = append(intros, intro)
	}
	sort.Slice(intros, func(i, j int) bool { return intros[i].SubmittedAt.Before(intros[j].SubmittedAt) })
	return intros, nil
}

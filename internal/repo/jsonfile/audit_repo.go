package jsonfile

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"bot_gatekeeper/internal/domain/model"
)

// AuditRepo keeps one ordered entry list per user, keyed by the user's
// Telegram ID in the persisted document.
type AuditRepo struct {
	mu      sync.Mutex
	path    string
	logger  *slog.Logger
	entries map[string][]model.AuditEntry
}

func NewAuditRepo(dataDir string, logger *slog.Logger) (*AuditRepo, error) {
	repo := &AuditRepo{
		path:    filepath.Join(dataDir, "audit.json"),
		logger:  logger,
		entries: make(map[string][]model.AuditEntry),
	}
	corrupt, err := load(repo.path, logger, &repo.entries)
	if err != nil {
		return nil, err
	}
	if corrupt || repo.entries == nil {
		repo.entries = make(map[string][]model.AuditEntry)
	}
	if corrupt {
		if err := persist(repo.path, repo.entries); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (r *AuditRepo) Append(ctx context.Context, entry model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strconv.FormatInt(entry.TGID, 10)
	r.entries[key] = append(r.entries[key], entry)
	return persist(r.path, r.entries)
}

func (r *AuditRepo) ListByUser(ctx context.Context, tgID int64) ([]model.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.entries[strconv.FormatInt(tgID, 10)]
	if len(stored) == 0 {
		return nil, nil
	}
	matched := make([]model.AuditEntry, len(stored))
	copy(matched, stored)
	return matched, nil
}

func (r *AuditRepo) ListSince(ctx context.Context, since time.Time) ([]model.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []model.AuditEntry
	for _, list := range r.entries {
		for _, entry := range list {
			if !entry.Timestamp.Before(since) {
				matched = append(matched, entry)
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
	return matched, nil
}

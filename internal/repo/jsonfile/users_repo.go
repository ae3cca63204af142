package jsonfile

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"bot_gatekeeper/internal/domain/model"
)

type UsersRepo struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	users  map[string]model.UserRecord
}

func NewUsersRepo(dataDir string, logger *slog.Logger) (*UsersRepo, error) {
	repo := &UsersRepo{
		path:   filepath.Join(dataDir, "users.json"),
		logger: logger,
		users:  make(map[string]model.UserRecord),
	}
	corrupt, err := load(repo.path, logger, &repo.users)
	if err != nil {
		return nil, err
	}
	if corrupt || repo.users == nil {
		repo.users = make(map[string]model.UserRecord)
	}
	if corrupt {
		if err := persist(repo.path, repo.users); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (r *UsersRepo) Get(ctx context.Context, tgID int64) (*model.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.users[strconv.FormatInt(tgID, 10)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r *UsersRepo) Upsert(ctx context.Context, record model.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[strconv.FormatInt(record.TGID, 10)] = record
	return persist(r.path, r.users)
}

func (r *UsersRepo) List(ctx context.Context) ([]model.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]model.UserRecord, 0, len(r.users))
	for _, record := range r.users {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].TGID < records[j].TGID })
	return records, nil
}

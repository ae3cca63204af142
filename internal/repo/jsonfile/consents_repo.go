package jsonfile

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type ConsentsRepo struct {
	mu       sync.Mutex
	path     string
	logger   *slog.Logger
	consents map[string]map[string]model.ConsentRecord
}

func NewConsentsRepo(dataDir string, logger *slog.Logger) (*ConsentsRepo, error) {
	repo := &ConsentsRepo{
		path:     filepath.Join(dataDir, "consents.json"),
		logger:   logger,
		consents: make(map[string]map[string]model.ConsentRecord),
	}
	corrupt, err := load(repo.path, logger, &repo.consents)
	if err != nil {
		return nil, err
	}
	if corrupt || repo.consents == nil {
		repo.consents = make(map[string]map[string]model.ConsentRecord)
	}
	if corrupt {
		if err := persist(repo.path, repo.consents); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (r *ConsentsRepo) Get(ctx context.Context, tgID int64, consentType enums.ConsentType) (*model.ConsentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byType, ok := r.consents[strconv.FormatInt(tgID, 10)]
	if !ok {
		return nil, nil
	}
	record, ok := byType[string(consentType)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r *ConsentsRepo) Put(ctx context.Context, record model.ConsentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strconv.FormatInt(record.TGID, 10)
	byType, ok := r.consents[key]
	if !ok {
		byType = make(map[string]model.ConsentRecord)
		r.consents[key] = byType
	}
	byType[string(record.Type)] = record
	return persist(r.path, r.consents)
}

func (r *ConsentsRepo) ListFor(ctx context.Context, tgID int64) ([]model.ConsentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byType, ok := r.consents[strconv.FormatInt(tgID, 10)]
	if !ok {
		return nil, nil
	}
	records := make([]model.ConsentRecord, 0, len(byType))
	for _, record := range byType {
		records = append(records, record)
	}
	return records, nil
}

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

type approvalsDoc struct {
	Approved map[string]bool                      `json:"approved"`
	Pending  map[string]model.PendingIntroduction `json:"pending"`
}

type ApprovalsRepo struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	doc    approvalsDoc
}

func NewApprovalsRepo(dataDir string, logger *slog.Logger) (*ApprovalsRepo, error) {
	repo := &ApprovalsRepo{
		path:   filepath.Join(dataDir, "approvals.json"),
		logger: logger,
	}
	corrupt, err := load(repo.path, logger, &repo.doc)
	if err != nil {
		return nil, err
	}
	if corrupt {
		repo.doc = approvalsDoc{}
	}
	if repo.doc.Approved == nil {
		repo.doc.Approved = make(map[string]bool)
	}
	if repo.doc.Pending == nil {
		repo.doc.Pending = make(map[string]model.PendingIntroduction)
	}
	if corrupt {
		if err := persist(repo.path, repo.doc); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (r *ApprovalsRepo) IsApproved(ctx context.Context, tgID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.doc.Approved[strconv.FormatInt(tgID, 10)], nil
}

func (r *ApprovalsRepo) Approve(ctx context.Context, tgID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strconv.FormatInt(tgID, 10)
	r.doc.Approved[key] = true
	delete(r.doc.Pending, key)
	return persist(r.path, r.doc)
}

func (r *ApprovalsRepo) Revoke(ctx context.Context, tgID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.doc.Approved, strconv.FormatInt(tgID, 10))
	return persist(r.path, r.doc)
}

func (r *ApprovalsRepo) PutPending(ctx context.Context, intro model.PendingIntroduction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Pending[strconv.FormatInt(intro.TGID, 10)] = intro
	return persist(r.path, r.doc)
}

func (r *ApprovalsRepo) GetPending(ctx context.Context, tgID int64) (*model.PendingIntroduction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	intro, ok := r.doc.Pending[strconv.FormatInt(tgID, 10)]
	if !ok {
		return nil, nil
	}
	return &intro, nil
}

func (r *ApprovalsRepo) DeletePending(ctx context.Context, tgID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.doc.Pending, strconv.FormatInt(tgID, 10))
	return persist(r.path, r.doc)
}

func (r *ApprovalsRepo) ListPending(ctx context.Context) ([]model.PendingIntroduction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	intros := make([]model.PendingIntroduction, 0, len(r.doc.Pending))
	for _, intro := range r.doc.Pending {
		intros = append(intros, intro)
	}
	sort.Slice(intros, func(i, j int) bool { return intros[i].SubmittedAt.Before(intros[j].SubmittedAt) })
	return intros, nil
}

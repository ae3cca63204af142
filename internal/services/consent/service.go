package consent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bot_gatekeeper/internal/domain/enums"
	"bot_gatekeeper/internal/domain/model"
)

type Repo interface {
	Get(context.Context, int64, enums.ConsentType) (*model.ConsentRecord, error)
	Put(context.Context, model.ConsentRecord) error
	ListFor(context.Context, int64) ([]model.ConsentRecord, error)
}

// Service records consent decisions and correlates interactive consent
// prompts with the callback that eventually answers them.
type Service struct {
	repo    Repo
	version string
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]chan bool
}

func NewService(repo Repo, version string, timeout time.Duration) *Service {
	if version == "" {
		version = "1.0"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Service{
		repo:    repo,
		version: version,
		timeout: timeout,
		now:     time.Now,
		pending: make(map[string]chan bool),
	}
}

// HasConsent reports whether the user granted this consent type under the
// current schema version. A record written under an older version does
// not count.
func (s *Service) HasConsent(ctx context.Context, tgID int64, consentType enums.ConsentType) (bool, error) {
	if s.repo == nil {
		return false, nil
	}

	record, err := s.repo.Get(ctx, tgID, consentType)
	if err != nil {
		return false, fmt.Errorf("get consent %d/%s: %w", tgID, consentType, err)
	}
	if record == nil || record.Version != s.version {
		return false, nil
	}
	return record.Status == enums.ConsentGranted, nil
}

// Record stores the user's decision, overwriting any previous one.
func (s *Service) Record(ctx context.Context, tgID int64, consentType enums.ConsentType, granted bool) error {
	if s.repo == nil {
		return nil
	}

	status := enums.ConsentDenied
	if granted {
		status = enums.ConsentGranted
	}
	record := model.ConsentRecord{
		TGID:      tgID,
		Type:      consentType,
		Status:    status,
		Timestamp: s.now().UTC(),
		Version:   s.version,
	}
	if err := s.repo.Put(ctx, record); err != nil {
		return fmt.Errorf("put consent %d/%s: %w", tgID, consentType, err)
	}
	return nil
}

func (s *Service) ListFor(ctx context.Context, tgID int64) ([]model.ConsentRecord, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListFor(ctx, tgID)
}

// NewRequest registers a pending interactive prompt and returns its
// correlation ID, to be embedded in the prompt's callback buttons.
func (s *Service) NewRequest() string {
	requestID := uuid.NewString()

	s.mu.Lock()
	s.pending[requestID] = make(chan bool, 1)
	s.mu.Unlock()
	return requestID
}

// Resolve delivers the user's answer for a pending request. It reports
// whether the request was still known; late or duplicate answers return
// false.
func (s *Service) Resolve(requestID string, granted bool) bool {
	s.mu.Lock()
	ch, ok := s.pending[requestID]
	if ok {
		delete(s.pending, requestID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	ch <- granted
	return true
}

// Await blocks until the request is resolved, the timeout elapses, or ctx
// is done. No answer within the window counts as declined.
func (s *Service) Await(ctx context.Context, requestID string) bool {
	s.mu.Lock()
	ch, ok := s.pending[requestID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case granted := <-ch:
		return granted
	case <-timer.C:
	case <-ctx.Done():
	}

	s.mu.Lock()
	delete(s.pending, requestID)
	s.mu.Unlock()
	return false
}

// Ask runs the full prompt round-trip: register, send the prompt, wait for
// the answer, and persist the decision.
func (s *Service) Ask(ctx context.Context, tgID int64, consentType enums.ConsentType, send func(requestID string) error) (bool, error) {
	requestID := s.NewRequest()
	if err := send(requestID); err != nil {
		s.mu.Lock()
		delete(s.pending, requestID)
		s.mu.Unlock()
		return false, fmt.Errorf("send consent prompt: %w", err)
	}

	granted := s.Await(ctx, requestID)
	if err := s.Record(ctx, tgID, consentType, granted); err != nil {
		return granted, err
	}
	return granted, nil
}

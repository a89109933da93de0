//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
	"notes-credit-ledger/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// -----------------------------
// TransactionManager
// -----------------------------

// mockTxManager serializes WithUserLock per user with a real mutex, so the
// concurrency tests exercise genuine mutual exclusion.
type mockTxManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMockTxManager() *mockTxManager {
	return &mockTxManager{locks: make(map[string]*sync.Mutex)}
}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

func (m *mockTxManager) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(ctx, repository.NoTX)
}

// -----------------------------
// Users
// -----------------------------

type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{store: make(map[string]*model.User)} }

func (m *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// -----------------------------
// Plans
// -----------------------------

type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan
}

func newMemPlanRepo() *memPlanRepo { return &memPlanRepo{store: make(map[string]*model.Plan)} }

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Plan
	for _, p := range m.store {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -----------------------------
// Subscriptions
// -----------------------------

type memSubscriptionRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.UserSubscription
	saveErr error
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.UserSubscription)}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.UserSubscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.UserSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) FindQualifying(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.UserSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.UserSubscription
	for _, s := range m.store {
		if s.UserID == userID && s.Qualifies(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndAt.Before(out[j].EndAt) })
	return out, nil
}

func (m *memSubscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && !s.EndAt.After(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range m.store {
		out[s.Status]++
	}
	return out, nil
}

func (m *memSubscriptionRepo) TotalRemainingMinutes(ctx context.Context, tx repository.Tx) (model.Minutes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total model.Minutes
	now := time.Now().UTC()
	for _, s := range m.store {
		if s.Qualifies(now) {
			total += s.Remaining()
		}
	}
	return total, nil
}

// -----------------------------
// Credit transactions
// -----------------------------

type memTxnRepo struct {
	mu      sync.RWMutex
	entries []*model.CreditTransaction // append order == creation order
}

func newMemTxnRepo() *memTxnRepo { return &memTxnRepo{} }

func (m *memTxnRepo) Save(ctx context.Context, tx repository.Tx, t *model.CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memTxnRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.CreditTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*model.CreditTransaction
	for i := len(m.entries) - 1; i >= 0; i-- { // newest first
		if m.entries[i].UserID == userID {
			cp := *m.entries[i]
			all = append(all, &cp)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memTxnRepo) ListDeductsByNote(ctx context.Context, tx repository.Tx, userID, noteID string) ([]*model.CreditTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.CreditTransaction
	for i := len(m.entries) - 1; i >= 0; i-- { // newest first
		e := m.entries[i]
		if e.UserID == userID && e.NoteID == noteID && e.Type == model.TransactionTypeDeduct {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTxnRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.CreditTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.CreditTransaction
	for _, e := range m.entries { // oldest first
		if e.SubscriptionID == subscriptionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -----------------------------
// Notes and uploads
// -----------------------------

type memNoteRepo struct {
	mu      sync.RWMutex
	notes   map[string]*model.Note
	uploads map[string][]*model.Upload // by note id
}

func newMemNoteRepo() *memNoteRepo {
	return &memNoteRepo{notes: make(map[string]*model.Note), uploads: make(map[string][]*model.Upload)}
}

func (m *memNoteRepo) Save(ctx context.Context, tx repository.Tx, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *memNoteRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memNoteRepo) SaveUpload(ctx context.Context, tx repository.Tx, u *model.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.uploads[u.NoteID] = append(m.uploads[u.NoteID], &cp)
	return nil
}

func (m *memNoteRepo) ListUploads(ctx context.Context, tx repository.Tx, noteID string) ([]*model.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Upload, 0, len(m.uploads[noteID]))
	for _, u := range m.uploads[noteID] {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memNoteRepo) FetchAndMarkProcessing(ctx context.Context) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *model.Note
	for _, n := range m.notes {
		if n.Status != model.NoteStatusQueued {
			continue
		}
		if oldest == nil || n.CreatedAt.Before(oldest.CreatedAt) {
			oldest = n
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	oldest.Status = model.NoteStatusProcessing
	cp := *oldest
	return &cp, nil
}

// -----------------------------
// Prober and cache
// -----------------------------

type mockProber struct {
	ProbeFunc func(ctx context.Context, path string) (float64, error)
}

func (p *mockProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if p.ProbeFunc != nil {
		return p.ProbeFunc(ctx, path)
	}
	return 0, domain.ErrDurationProbeFailed
}

type memBalanceCache struct {
	mu          sync.Mutex
	store       map[string]*usecase.Balance
	invalidated []string
}

func newMemBalanceCache() *memBalanceCache {
	return &memBalanceCache{store: make(map[string]*usecase.Balance)}
}

func (c *memBalanceCache) Get(ctx context.Context, userID string) (*usecase.Balance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[userID]
	return b, ok
}

func (c *memBalanceCache) Set(ctx context.Context, userID string, b *usecase.Balance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[userID] = b
}

func (c *memBalanceCache) Invalidate(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, userID)
	c.invalidated = append(c.invalidated, userID)
}

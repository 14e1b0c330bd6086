// Package memory keeps users, transactions and messages in process memory.
// It backs tests and single-instance development runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// Store implements ports.Store with maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	emails   map[string]string // normalized email -> user ID
	txs      map[string]domain.Transaction
	txOrder  []string
	messages map[string][]domain.Message // transaction ID -> log
	newID    func() string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		txs:      make(map[string]domain.Transaction),
		messages: make(map[string][]domain.Message),
		newID:    uuid.NewString,
	}
}

var _ ports.Store = (*Store)(nil)

func (s *Store) Users() ports.UserRepository               { return userRepo{s} }
func (s *Store) Transactions() ports.TransactionRepository { return txRepo{s} }
func (s *Store) Messages() ports.MessageRepository         { return messageRepo{s} }
func (s *Store) Driver() string                            { return "memory" }
func (s *Store) Ping(context.Context) error                { return nil }
func (s *Store) Close(context.Context) error               { return nil }

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	if _, taken := r.s.emails[email]; taken {
		return nil, domain.ErrEmailTaken
	}
	u := *user
	u.Email = email
	if u.ID == "" {
		u.ID = r.s.newID()
	}
	r.s.users[u.ID] = u
	r.s.emails[email] = u.ID
	return &u, nil
}

func (r userRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	email := domain.NormalizeEmail(user.Email)
	if email != current.Email {
		if owner, taken := r.s.emails[email]; taken && owner != user.ID {
			return nil, domain.ErrEmailTaken
		}
		delete(r.s.emails, current.Email)
		r.s.emails[email] = user.ID
	}
	current.Email = email
	current.Name = user.Name
	current.Phone = user.Phone
	current.UserType = user.UserType
	r.s.users[user.ID] = current
	return &current, nil
}

// --- transactions ---

type txRepo struct{ s *Store }

func (r txRepo) Create(_ context.Context, t *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == "" {
		t.ID = r.s.newID()
	}
	r.s.txs[t.ID] = cloneTx(*t)
	r.s.txOrder = append(r.s.txOrder, t.ID)
	return nil
}

func (r txRepo) FindByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.txs[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	c := cloneTx(t)
	return &c, nil
}

// List returns newest first; same-day transactions come out in reverse
// insertion order.
func (r txRepo) List(_ context.Context, f ports.TransactionFilter) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Transaction, 0, len(r.s.txOrder))
	for i := len(r.s.txOrder) - 1; i >= 0; i-- {
		t := r.s.txs[r.s.txOrder[i]]
		if f.UserID != "" && !t.Involves(f.UserID) {
			continue
		}
		c := cloneTx(t)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].CreatedDate.Before(out[i].CreatedDate)
	})
	return out, nil
}

func (r txRepo) UpdateStatus(_ context.Context, id string, change domain.StatusChange) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.txs[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	t.Status = change.Status
	t.LastUpdate = change.LastUpdate
	if change.DisputeReason != "" {
		t.DisputeReason = change.DisputeReason
	}
	r.s.txs[id] = t
	c := cloneTx(t)
	return &c, nil
}

func (r txRepo) AppendImage(_ context.Context, id, uri string, lastUpdate domain.Date) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.txs[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	t.Images = append(append([]string(nil), t.Images...), uri)
	t.LastUpdate = lastUpdate
	r.s.txs[id] = t
	c := cloneTx(t)
	return &c, nil
}

// --- messages ---

type messageRepo struct{ s *Store }

func (r messageRepo) Append(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.txs[m.TransactionID]; !ok {
		return domain.ErrTransactionNotFound
	}
	if m.ID == "" {
		m.ID = r.s.newID()
	}
	r.s.messages[m.TransactionID] = append(r.s.messages[m.TransactionID], *m)
	return nil
}

func (r messageRepo) ListByTransaction(_ context.Context, transactionID string) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	log := r.s.messages[transactionID]
	out := make([]*domain.Message, 0, len(log))
	for i := range log {
		m := log[i]
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func cloneTx(t domain.Transaction) domain.Transaction {
	t.Images = append([]string(nil), t.Images...)
	if len(t.Images) == 0 {
		t.Images = nil
	}
	return t
}

// Package memory is a process-local transaction and user store. It backs
// DATA_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/core"
)

type Store struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]core.Transaction
	users   map[string]core.User
	emails  map[string]string
}

func New() *Store {
	return &Store{
		byOwner: make(map[string]map[string]core.Transaction),
		users:   make(map[string]core.User),
		emails:  make(map[string]string),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Insert(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, ok := s.byOwner[t.Owner]
	if !ok {
		txs = make(map[string]core.Transaction)
		s.byOwner[t.Owner] = txs
	}
	if _, dup := txs[t.ID]; dup {
		return fmt.Errorf("insert transaction %s: %w", t.ID, core.ErrConflict)
	}
	txs[t.ID] = t
	return nil
}

func (s *Store) Get(_ context.Context, owner, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byOwner[owner][id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) List(_ context.Context, owner string, f core.ListFilter) (core.Page, error) {
	s.mu.RLock()
	matched := make([]core.Transaction, 0, len(s.byOwner[owner]))
	for _, t := range s.byOwner[owner] {
		if f.Matches(t) {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	core.SortNewestFirst(matched)

	page := core.Page{Total: len(matched), Limit: f.Limit, Offset: f.Offset}
	start := min(f.Offset, len(matched))
	end := len(matched)
	if !f.Unbounded && f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	page.Items = append(make([]core.Transaction, 0, end-start), matched[start:end]...)
	return page, nil
}

// Update holds the write lock across fn so the read-check-write is atomic.
func (s *Store) Update(_ context.Context, owner, id string, fn core.UpdateFunc) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byOwner[owner][id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	next, changed, err := fn(current)
	if err != nil {
		return core.Transaction{}, err
	}
	if !changed {
		return current, nil
	}
	s.byOwner[owner][id] = next
	return next, nil
}

func (s *Store) Delete(_ context.Context, owner, id string) (core.Removed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byOwner[owner][id]
	if !ok {
		return core.Removed{}, core.ErrNotFound
	}
	delete(s.byOwner[owner], id)
	return core.Removed{ID: t.ID, Title: t.Title}, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.emails[u.Email]; dup {
		return fmt.Errorf("create user: %w", core.ErrConflict)
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) UserByID(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

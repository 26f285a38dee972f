package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yyupcompany/kyyupgame-sub030/internal/auth"
)

type stubAccounts struct {
	mu       sync.Mutex
	accounts map[int64]auth.Account
	err      error
	calls    int
}

func newStubAccounts(accts ...auth.Account) *stubAccounts {
	s := &stubAccounts{accounts: map[int64]auth.Account{}}
	for _, a := range accts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *stubAccounts) AccountByID(_ context.Context, id int64) (auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return auth.Account{}, s.err
	}
	a, ok := s.accounts[id]
	if !ok {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	return a, nil
}

func (s *stubAccounts) AccountByLogin(_ context.Context, login string) (auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return auth.Account{}, s.err
	}
	for _, a := range s.accounts {
		if a.Email == login || a.Phone == login {
			return a, nil
		}
	}
	return auth.Account{}, auth.ErrAccountNotFound
}

type stubSessions struct {
	created []auth.Session
	ended   []string
	err     error
}

func (s *stubSessions) CreateSession(_ context.Context, sess auth.Session) error {
	s.created = append(s.created, sess)
	return s.err
}

func (s *stubSessions) EndSession(_ context.Context, id string) error {
	s.ended = append(s.ended, id)
	return s.err
}

type stubRevocations struct {
	revoked map[string]time.Time
	err     error
}

func newStubRevocations() *stubRevocations {
	return &stubRevocations{revoked: map[string]time.Time{}}
}

func (s *stubRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.revoked[id] = until
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.revoked[id]
	return ok, nil
}

var errStoreDown = errors.New("connection refused")

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// LoginRequest carries the caller metadata recorded with a session.
type LoginRequest struct {
	Login     string
	Password  string
	IP        string
	UserAgent string
}

// Service wraps login and logout rules.
type Service struct {
	accounts AccountStore
	sessions SessionStore
	codec    *TokenCodec
	revoked  RevocationList
	logger   *slog.Logger
}

// NewService constructs a Service. sessions and revoked may be nil.
func NewService(accounts AccountStore, sessions SessionStore, codec *TokenCodec, revoked RevocationList, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{accounts: accounts, sessions: sessions, codec: codec, revoked: revoked, logger: logger}
}

// Login checks the password and issues a token. Unknown, disabled and wrong
// password all yield ErrInvalidLogin.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Token, Account, error) {
	acct, err := s.accounts.AccountByLogin(ctx, strings.TrimSpace(req.Login))
	if errors.Is(err, ErrAccountNotFound) {
		return Token{}, Account{}, ErrInvalidLogin
	}
	if err != nil {
		return Token{}, Account{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if acct.Status != rbac.StatusActive {
		return Token{}, Account{}, ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		return Token{}, Account{}, ErrInvalidLogin
	}

	token, err := s.codec.Issue(acct)
	if err != nil {
		return Token{}, Account{}, err
	}
	if s.sessions != nil {
		sess := Session{ID: token.ID, UserID: acct.ID, ExpiresAt: token.ExpiresAt, IP: req.IP, UserAgent: req.UserAgent}
		if err := s.sessions.CreateSession(ctx, sess); err != nil {
			s.logger.Warn("auth register session", slog.Int64("user_id", acct.ID), slog.Any("error", err))
		}
	}
	return token, acct, nil
}

// Logout revokes the token the principal was verified from.
func (s *Service) Logout(ctx context.Context, p rbac.Principal) error {
	if p.CredentialID == "" {
		return nil
	}
	if s.revoked != nil {
		if err := s.revoked.Revoke(ctx, p.CredentialID, p.CredentialExpiry); err != nil {
			return err
		}
	}
	if s.sessions != nil {
		if err := s.sessions.EndSession(ctx, p.CredentialID); err != nil {
			s.logger.Warn("auth end session", slog.Int64("user_id", p.ID), slog.Any("error", err))
		}
	}
	return nil
}

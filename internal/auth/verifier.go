package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// Verifier turns a raw bearer token into a Principal. Role assignments and
// account status come from the store on every call, never from the token.
type Verifier struct {
	codec    *TokenCodec
	accounts AccountStore
	revoked  RevocationList
}

// NewVerifier constructs a Verifier. revoked may be nil.
func NewVerifier(codec *TokenCodec, accounts AccountStore, revoked RevocationList) *Verifier {
	return &Verifier{codec: codec, accounts: accounts, revoked: revoked}
}

// Verify validates raw and loads the account behind it. Rejections are
// *Error; store failures wrap ErrUpstream.
func (v *Verifier) Verify(ctx context.Context, raw string) (rbac.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return rbac.Principal{}, ErrMissingCredential
	}
	claims, err := v.codec.Parse(raw)
	if err != nil {
		return rbac.Principal{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return rbac.Principal{}, err
	}

	if v.revoked != nil && claims.ID != "" {
		revoked, err := v.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return rbac.Principal{}, fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		if revoked {
			return rbac.Principal{}, reject(KindRevoked, nil)
		}
	}

	acct, err := v.accounts.AccountByID(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return rbac.Principal{}, reject(KindUnknownAccount, nil)
	}
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if acct.Status != rbac.StatusActive {
		return rbac.Principal{}, reject(KindAccountDisabled, fmt.Errorf("status %q", acct.Status))
	}

	roles := rbac.NormalizeRoleCodes(acct.Roles)
	if len(roles) == 0 {
		return rbac.Principal{}, reject(KindNoRoles, nil)
	}

	p := rbac.Principal{
		ID:           acct.ID,
		Name:         acct.Name,
		Roles:        roles,
		Status:       acct.Status,
		CredentialID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.CredentialExpiry = claims.ExpiresAt.Time
	}
	return p, nil
}

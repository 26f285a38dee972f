package auth

import "errors"

// Kind classifies why a credential was rejected.
type Kind int

const (
	KindMissingCredential Kind = iota + 1
	KindMalformedCredential
	KindInvalidSignature
	KindExpired
	KindRevoked
	KindUnknownAccount
	KindAccountDisabled
	KindNoRoles
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindMalformedCredential:
		return "malformed_credential"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindExpired:
		return "expired"
	case KindRevoked:
		return "revoked"
	case KindUnknownAccount:
		return "unknown_account"
	case KindAccountDisabled:
		return "account_disabled"
	case KindNoRoles:
		return "no_roles"
	}
	return "unknown"
}

// Error is a credential rejection. Every Error maps to an unauthenticated
// response; the Kind is for logs and audit only.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "auth: " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "auth: " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrMissingCredential   = &Error{Kind: KindMissingCredential}
	ErrMalformedCredential = &Error{Kind: KindMalformedCredential}
	ErrInvalidSignature    = &Error{Kind: KindInvalidSignature}
	ErrExpired             = &Error{Kind: KindExpired}
	ErrRevoked             = &Error{Kind: KindRevoked}
	ErrUnknownAccount      = &Error{Kind: KindUnknownAccount}
	ErrAccountDisabled     = &Error{Kind: KindAccountDisabled}
	ErrNoRoles             = &Error{Kind: KindNoRoles}
)

var (
	// ErrUpstream indicates the account or revocation store could not answer.
	ErrUpstream = errors.New("auth: credential store unavailable")
	// ErrAccountNotFound is returned by AccountStore for unknown accounts.
	ErrAccountNotFound = errors.New("auth: account not found")
	// ErrInvalidLogin is returned by Login for any bad credential pair.
	ErrInvalidLogin = errors.New("auth: invalid login or password")
)

func reject(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the rejection kind from err.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

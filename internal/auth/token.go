package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Claims is the payload of an access token. Roles are informational; the
// verifier always reads role assignments from the account store.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ID          string    `json:"-"`
}

// TokenCodec issues and parses HS256 access tokens.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec constructs a TokenCodec.
func NewTokenCodec(secret, issuer string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Issue signs a token for the account.
func (c *TokenCodec) Issue(acct Account) (Token, error) {
	now := c.now()
	claims := Claims{
		Name:  acct.Name,
		Roles: acct.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(acct.ID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		ID:          claims.ID,
	}, nil
}

// Parse checks signature, algorithm, issuer and expiry. Rejections are *Error.
func (c *TokenCodec) Parse(raw string) (Claims, error) {
	var claims Claims
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, reject(KindMalformedCredential, err)
		}
		return Claims{}, reject(KindInvalidSignature, err)
	}
	if claims.ExpiresAt == nil {
		return Claims{}, reject(KindMalformedCredential, errors.New("missing exp"))
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return Claims{}, reject(KindExpired, nil)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, reject(KindInvalidSignature, fmt.Errorf("issuer %q", claims.Issuer))
	}
	return claims, nil
}

// UserID decodes the subject claim.
func (c Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, reject(KindMalformedCredential, fmt.Errorf("subject %q", c.Subject))
	}
	return id, nil
}

// ExtractBearer returns the token from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", reject(KindMalformedCredential, errors.New("authorization scheme"))
	}
	token := strings.Trim(parts[1], `"'`)
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

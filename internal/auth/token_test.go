package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyupcompany/kyyupgame-sub030/internal/auth"
	_ "github.com/yyupcompany/kyyupgame-sub030/testing"
)

const testSecret = "test-secret-test-secret-test-secret"

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestTokenCodecRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	codec := auth.NewTokenCodec(testSecret, "kyyup", time.Hour).WithClock(fixedClock(now))

	tok, err := codec.Issue(auth.Account{ID: 42, Name: "Li Hua", Roles: []string{"TEACHER"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, tok.ExpiresAt.Equal(now.Add(time.Hour)))
	assert.NotEmpty(t, tok.ID)

	claims, err := codec.Parse(tok.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, tok.ID, claims.ID)
	assert.Equal(t, []string{"TEACHER"}, claims.Roles)
}

func TestTokenCodecRejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	issuer := auth.NewTokenCodec(testSecret, "kyyup", time.Minute).WithClock(fixedClock(now))
	tok, err := issuer.Issue(auth.Account{ID: 1})
	require.NoError(t, err)

	atExpiry := issuer.WithClock(fixedClock(now.Add(time.Minute)))
	_, err = atExpiry.Parse(tok.AccessToken)
	assert.ErrorIs(t, err, auth.ErrExpired)

	justBefore := issuer.WithClock(fixedClock(now.Add(time.Minute - time.Second)))
	_, err = justBefore.Parse(tok.AccessToken)
	assert.NoError(t, err)
}

func TestTokenCodecRejectsForeignSignature(t *testing.T) {
	other := auth.NewTokenCodec("another-secret-another-secret-000", "kyyup", time.Hour)
	tok, err := other.Issue(auth.Account{ID: 1})
	require.NoError(t, err)

	_, err = auth.NewTokenCodec(testSecret, "kyyup", time.Hour).Parse(tok.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestTokenCodecRejectsWrongIssuer(t *testing.T) {
	tok, err := auth.NewTokenCodec(testSecret, "elsewhere", time.Hour).Issue(auth.Account{ID: 1})
	require.NoError(t, err)

	_, err = auth.NewTokenCodec(testSecret, "kyyup", time.Hour).Parse(tok.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestTokenCodecRejectsNoneAlgorithm(t *testing.T) {
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewTokenCodec(testSecret, "", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestTokenCodecRejectsMissingExpiry(t *testing.T) {
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = auth.NewTokenCodec(testSecret, "", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, auth.ErrMalformedCredential)
}

func TestTokenCodecRejectsGarbage(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, "", time.Hour)
	for _, raw := range []string{"abc", "a.b", "a.b.c", strings.Repeat("x", 40)} {
		_, err := codec.Parse(raw)
		kind, ok := auth.KindOf(err)
		require.True(t, ok, raw)
		assert.Equal(t, auth.KindMalformedCredential, kind, raw)
	}
}

func TestTokenCodecTamperedPayload(t *testing.T) {
	codec := auth.NewTokenCodec(testSecret, "", time.Hour)
	tok, err := codec.Issue(auth.Account{ID: 1})
	require.NoError(t, err)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "99",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte("x"))
	require.NoError(t, err)

	parts := strings.Split(tok.AccessToken, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = codec.Parse(spliced)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestExtractBearer(t *testing.T) {
	tok, err := auth.ExtractBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	tok, err = auth.ExtractBearer(`  bearer   "abc.def.ghi" `)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	_, err = auth.ExtractBearer("")
	assert.ErrorIs(t, err, auth.ErrMissingCredential)
	_, err = auth.ExtractBearer(`Bearer ""`)
	assert.ErrorIs(t, err, auth.ErrMissingCredential)

	for _, h := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Bearer a b", "Token abc"} {
		_, err := auth.ExtractBearer(h)
		assert.ErrorIs(t, err, auth.ErrMalformedCredential, h)
	}
}

package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asafe/user-service/internal/domain"
)

func newTestTokenManager(now time.Time) *TokenManager {
	tm := NewTokenManager("test-secret", 60)
	tm.now = func() time.Time { return now }
	return tm
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tm := newTestTokenManager(now)

	token, exp, err := tm.GenerateToken(42, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	principal, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, &domain.Principal{ID: 42, Role: domain.RoleAdmin}, principal)
}

func TestExpiredAndTamperedTokensAreIndistinguishable(t *testing.T) {
	now := time.Now()
	tm := newTestTokenManager(now)

	expired, _, err := tm.Issue(Identity{Subject: 1, Role: domain.RoleUser}, 0)
	require.NoError(t, err)
	_, expiredErr := tm.Verify(expired)

	valid, _, err := tm.GenerateToken(1, domain.RoleUser)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	_, tamperedErr := tm.Verify(tampered)

	require.ErrorIs(t, expiredErr, ErrInvalidToken)
	require.ErrorIs(t, tamperedErr, ErrInvalidToken)
	assert.Equal(t, expiredErr.Error(), tamperedErr.Error())
}

func TestTokenExpiresAfterTTL(t *testing.T) {
	now := time.Now()
	tm := newTestTokenManager(now)

	token, _, err := tm.Issue(Identity{Subject: 7, Role: domain.RoleUser}, time.Minute)
	require.NoError(t, err)

	_, err = tm.Verify(token)
	require.NoError(t, err)

	tm.now = func() time.Time { return now.Add(time.Minute + time.Second) }
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	other := NewTokenManager("other-secret", 60)

	foreign, _, err := other.GenerateToken(1, domain.RoleAdmin)
	require.NoError(t, err)

	claims := &Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "ROOT",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "abc", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"other secret": foreign,
		"alg none":     none,
		"no expiry":    noExp,
		"unknown role": badRole,
		"bad subject":  badSubject,
		"garbage":      "not.a.jwt",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

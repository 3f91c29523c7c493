package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/asafe/user-service/internal/domain"
)

// ErrInvalidToken is returned for every verification failure so callers
// cannot tell a bad signature from an expired token.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// Identity is the subject a token is issued for.
type Identity struct {
	Subject int64
	Role    domain.Role
}

// Claims describes JWT payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts verified claims to the request principal.
func (c *Claims) Principal() (*domain.Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidToken
	}
	if !c.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return &domain.Principal{ID: id, Role: c.Role}, nil
}

// TTL returns the default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// GenerateToken builds and signs a JWT for the user with the default TTL.
func (tm *TokenManager) GenerateToken(subjectID int64, role domain.Role) (string, time.Time, error) {
	return tm.Issue(Identity{Subject: subjectID, Role: role}, tm.ttl)
}

// Issue signs a token for identity that expires ttl after issuance.
func (tm *TokenManager) Issue(identity Identity, ttl time.Duration) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.Subject, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify validates tokenStr and resolves the principal it carries.
func (tm *TokenManager) Verify(tokenStr string) (*domain.Principal, error) {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.Principal()
}

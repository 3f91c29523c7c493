package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher hashes and verifies passwords with bcrypt. The number of
// concurrent hash operations is bounded since each one is CPU heavy.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher builds a hasher with the given bcrypt cost and concurrency.
func NewHasher(cost int, concurrency int64) *Hasher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(concurrency)}
}

// Hash returns a salted bcrypt digest of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	return HashPassword(password, h.cost)
}

// Verify reports whether password matches digest. It shares the hashing
// concurrency bound; malformed digests and a cancelled ctx yield false.
func (h *Hasher) Verify(ctx context.Context, password, digest string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return ComparePassword(digest, password) == nil
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

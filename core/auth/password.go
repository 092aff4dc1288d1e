package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes bcrypt 只使用前 72 字节
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords bcrypt would truncate.
var ErrPasswordTooLong = fmt.Errorf("password exceeds %d bytes", MaxPasswordBytes)

// Hasher hashes and verifies account credentials with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher; a cost outside bcrypt's range falls back to the default.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

var defaultHasher = NewHasher(bcrypt.DefaultCost)

// Hash 生成密码的 bcrypt 摘要
func (h Hasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. Digests that are not
// bcrypt (e.g. a legacy plaintext entry) never match.
func (h Hasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// HashPassword hashes with the default cost.
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// CheckPasswordHash verifies against a digest produced by any cost.
func CheckPasswordHash(password, digest string) bool {
	return defaultHasher.Verify(password, digest)
}

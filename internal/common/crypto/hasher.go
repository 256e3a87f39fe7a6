package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/cipher-calc/backend/internal/common/constants"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

// TokenHasher produces the at-rest form of refresh tokens. The raw token is
// never stored; redemption re-compares the presented token against the hash.
type TokenHasher interface {
	Hash(token string) string
	Compare(hash string, token string) error
}

type BcryptPasswordHasher struct{}

func (h *BcryptPasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), constants.PasswordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptPasswordHasher) Compare(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

var ErrTokenHashMismatch = errors.New("token hash mismatch")

// SHA256TokenHasher hashes serialized tokens. bcrypt caps input at 72 bytes,
// which a signed JWT always exceeds, so tokens get a plain digest instead.
type SHA256TokenHasher struct{}

func (h *SHA256TokenHasher) Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (h *SHA256TokenHasher) Compare(hash string, token string) error {
	if subtle.ConstantTimeCompare([]byte(hash), []byte(h.Hash(token))) != 1 {
		return ErrTokenHashMismatch
	}
	return nil
}

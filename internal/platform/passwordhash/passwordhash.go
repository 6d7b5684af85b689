package passwordhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SHA256 produces a deterministic lowercase hex digest, so the registration
// service can compare it against later logins.
type SHA256 struct{}

func (SHA256) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// BcryptMaxPasswordBytes is the longest input bcrypt accepts.
const BcryptMaxPasswordBytes = 72

// Bcrypt produces a salted bcrypt hash for services that store it as-is.
type Bcrypt struct {
	Cost int
}

func (Bcrypt) MaxPasswordBytes() int { return BcryptMaxPasswordBytes }

func (b Bcrypt) Hash(password string) (string, error) {
	if len(password) > BcryptMaxPasswordBytes {
		return "", fmt.Errorf("bcrypt: password is %d bytes, limit is %d", len(password), BcryptMaxPasswordBytes)
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

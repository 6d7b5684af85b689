package securestore

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
)

// Well-known keys shared by the registration flow.
const (
	KeySecretToken       = "SECRET_TOKEN"
	KeyUserName          = "userName"
	KeyUserEmail         = "userEmail"
	KeyTempRegisterToken = "tempRegisterToken"
	KeyRegisterEmail     = "registerEmail"
)

// ErrNotFound indicates no value is stored under the key.
var ErrNotFound = errors.New("secure store key not found")

// Store is a per-subject key-value store whose values are encrypted at rest.
// Implementations never persist plaintext values.
type Store interface {
	Get(ctx context.Context, subject domain.SubjectID, key string) (string, error)
	Set(ctx context.Context, subject domain.SubjectID, key string, value string) error
	Delete(ctx context.Context, subject domain.SubjectID, key string) error
}

// AAD binds a sealed value to its owner and key so sealed values cannot be moved between slots.
func AAD(subject domain.SubjectID, key string) []byte {
	return []byte(string(subject) + "\x00" + key)
}

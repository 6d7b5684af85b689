package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request for replay purposes.
//
// A submit is replayed only when key, subject, route and body hash all match.
// The record stored with an empty BodyHash pins the key to the first payload seen.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored outcome we can replay for a duplicate submit.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// Claim stores rec only if fp has no record yet. It returns the record now
	// stored under fp and whether it is rec.
	Claim(ctx context.Context, fp Fingerprint, rec Record) (Record, bool, error)
}

// HashBody returns a stable hex digest of v's JSON encoding.
func HashBody(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

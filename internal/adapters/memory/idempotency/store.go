package idempotency

import (
	"bytes"
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
)

// Store keeps idempotency records in process memory.
// Bodies are copied on the way in and out so callers can reuse their buffers.
type Store struct {
	mu      sync.RWMutex
	records map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{records: make(map[idempotency.Fingerprint]idempotency.Record)}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return idempotency.Record{}, false, err
	}
	s.mu.RLock()
	rec, ok := s.records[fp]
	s.mu.RUnlock()
	if !ok {
		return idempotency.Record{}, false, nil
	}
	return clone(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records[fp] = clone(rec)
	s.mu.Unlock()
	return nil
}

func (s *Store) Claim(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return idempotency.Record{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[fp]; ok {
		return clone(existing), false, nil
	}
	s.records[fp] = clone(rec)
	return clone(rec), true, nil
}

func clone(rec idempotency.Record) idempotency.Record {
	rec.Body = bytes.Clone(rec.Body)
	return rec
}

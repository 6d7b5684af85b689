package securestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/crypto/sealer"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/securestore"
)

type entryKey struct {
	subject domain.SubjectID
	key     string
}

// Store is an in-memory implementation of securestore.Store.
// Values are held sealed; it is safe for concurrent use.
type Store struct {
	sealer *sealer.Sealer

	mu sync.RWMutex
	m  map[entryKey][]byte
}

func NewStore(s *sealer.Sealer) *Store {
	return &Store{
		sealer: s,
		m:      make(map[entryKey][]byte),
	}
}

func (s *Store) Get(ctx context.Context, subject domain.SubjectID, key string) (string, error) {
	_ = ctx
	s.mu.RLock()
	sealed, ok := s.m[entryKey{subject, key}]
	s.mu.RUnlock()
	if !ok {
		return "", securestore.ErrNotFound
	}
	plain, err := s.sealer.Open(sealed, securestore.AAD(subject, key))
	if err != nil {
		return "", fmt.Errorf("open %q: %w", key, err)
	}
	return string(plain), nil
}

func (s *Store) Set(ctx context.Context, subject domain.SubjectID, key string, value string) error {
	_ = ctx
	sealed, err := s.sealer.Seal([]byte(value), securestore.AAD(subject, key))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[entryKey{subject, key}] = sealed
	return nil
}

func (s *Store) Delete(ctx context.Context, subject domain.SubjectID, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, entryKey{subject, key})
	return nil
}

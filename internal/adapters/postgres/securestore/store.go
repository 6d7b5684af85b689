package securestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/crypto/sealer"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/securestore"
)

// Store is a Postgres implementation of securestore.Store.
// Only sealed values reach the database.
type Store struct {
	pool   *pgxpool.Pool
	issuer string
	sealer *sealer.Sealer
}

func NewStore(pool *pgxpool.Pool, jwtIssuer string, s *sealer.Sealer) *Store {
	return &Store{pool: pool, issuer: jwtIssuer, sealer: s}
}

func (s *Store) Get(ctx context.Context, subject domain.SubjectID, key string) (string, error) {
	if s.pool == nil {
		return "", errors.New("nil postgres pool")
	}
	var sealed []byte
	err := s.pool.QueryRow(ctx, `
		SELECT sealed
		FROM secure_store_entries
		WHERE subject_iss = $1 AND subject_sub = $2 AND key = $3
	`, s.issuer, string(subject), key).Scan(&sealed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", securestore.ErrNotFound
		}
		return "", err
	}
	plain, err := s.sealer.Open(sealed, securestore.AAD(subject, key))
	if err != nil {
		return "", fmt.Errorf("open %q: %w", key, err)
	}
	return string(plain), nil
}

func (s *Store) Set(ctx context.Context, subject domain.SubjectID, key string, value string) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	sealed, err := s.sealer.Seal([]byte(value), securestore.AAD(subject, key))
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO secure_store_entries (subject_iss, subject_sub, key, sealed, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (subject_iss, subject_sub, key)
		DO UPDATE SET sealed = EXCLUDED.sealed, updated_at = EXCLUDED.updated_at
	`, s.issuer, string(subject), key, sealed)
	return err
}

func (s *Store) Delete(ctx context.Context, subject domain.SubjectID, key string) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM secure_store_entries
		WHERE subject_iss = $1 AND subject_sub = $2 AND key = $3
	`, s.issuer, string(subject), key)
	return err
}

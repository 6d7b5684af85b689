package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
)

// Store keeps idempotency records in the idempotency_keys table.
// Rows are scoped by (issuer, subject) so two identity providers never share keys.
type Store struct {
	pool   *pgxpool.Pool
	issuer string
}

func NewStore(pool *pgxpool.Pool, jwtIssuer string) *Store {
	return &Store{pool: pool, issuer: jwtIssuer}
}

const selectRecord = `
	SELECT status_code, content_type, body, created_at
	FROM idempotency_keys
	WHERE idempotency_key = @key
	  AND subject_iss = @iss
	  AND subject_sub = @sub
	  AND method = @method
	  AND route = @route
	  AND body_hash = @body_hash`

const insertRecord = `
	INSERT INTO idempotency_keys (
		idempotency_key, subject_iss, subject_sub, method, route, body_hash,
		status_code, content_type, body, created_at
	) VALUES (
		@key, @iss, @sub, @method, @route, @body_hash,
		@status_code, @content_type, @body, @created_at
	)`

func (s *Store) args(fp idempotency.Fingerprint) pgx.NamedArgs {
	return pgx.NamedArgs{
		"key":       string(fp.Key),
		"iss":       s.issuer,
		"sub":       string(fp.Subject),
		"method":    fp.Method,
		"route":     fp.Route,
		"body_hash": fp.BodyHash,
	}
}

func (s *Store) recordArgs(fp idempotency.Fingerprint, rec idempotency.Record) pgx.NamedArgs {
	args := s.args(fp)
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	args["status_code"] = rec.StatusCode
	args["content_type"] = rec.ContentType
	args["body"] = body
	args["created_at"] = createdAt.UTC()
	return args
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, selectRecord, s.args(fp)).
		Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, fmt.Errorf("load idempotency record: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := s.pool.Exec(ctx, insertRecord+`
		ON CONFLICT (idempotency_key, subject_iss, subject_sub, method, route, body_hash)
		DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at`,
		s.recordArgs(fp, rec),
	)
	return wrapWriteErr(err)
}

// Claim relies on the primary key: the first insert wins and later callers read it back.
func (s *Store) Claim(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	tag, err := s.pool.Exec(ctx, insertRecord+`
		ON CONFLICT (idempotency_key, subject_iss, subject_sub, method, route, body_hash)
		DO NOTHING`,
		s.recordArgs(fp, rec),
	)
	if err != nil {
		return idempotency.Record{}, false, wrapWriteErr(err)
	}
	if tag.RowsAffected() == 1 {
		return rec, true, nil
	}
	existing, ok, err := s.Get(ctx, fp)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	if !ok {
		return idempotency.Record{}, false, fmt.Errorf("idempotency record for key %q vanished after conflict", fp.Key)
	}
	return existing, false, nil
}

func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := postgres.AsPgError(err); ok {
		return fmt.Errorf("store idempotency record (%s): %w", pe.Code, err)
	}
	return fmt.Errorf("store idempotency record: %w", err)
}

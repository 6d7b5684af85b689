package profilerepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/profilerepo"
)

// Repo is a Postgres implementation of profilerepo.Repository.
type Repo struct {
	pool   *pgxpool.Pool
	issuer string
}

func NewRepo(pool *pgxpool.Pool, jwtIssuer string) *Repo {
	return &Repo{pool: pool, issuer: jwtIssuer}
}

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO profiles (
			external_id,
			subject_iss,
			subject_sub,
			name,
			email,
			phone_number,
			address,
			gender,
			occupation,
			employee_id,
			version,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		id,
		r.issuer,
		string(p.Subject),
		p.Name,
		p.Email,
		p.PhoneNumber,
		p.Address,
		p.Gender,
		p.Occupation,
		p.EmployeeID,
		p.Version,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return profilerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	if r.pool == nil {
		return profilerepo.Profile{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT external_id, subject_sub, name, email, phone_number, address, gender,
		       occupation, employee_id, version, created_at, updated_at
		FROM profiles
		WHERE subject_iss = $1 AND subject_sub = $2
	`, r.issuer, string(subject))
	return scanProfile(row)
}

// Update is a compare-and-swap on version; a missing row and a stale version are told apart
// by a follow-up read inside the same transaction.
func (r *Repo) Update(ctx context.Context, p profilerepo.Profile, expectedVersion int64) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid profile id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE profiles
			SET name = $5,
			    email = $6,
			    phone_number = $7,
			    address = $8,
			    gender = $9,
			    occupation = $10,
			    employee_id = $11,
			    version = $12,
			    updated_at = $13
			WHERE subject_iss = $1
			  AND subject_sub = $2
			  AND external_id = $3
			  AND version = $4
		`,
			r.issuer,
			string(p.Subject),
			id,
			expectedVersion,
			p.Name,
			p.Email,
			p.PhoneNumber,
			p.Address,
			p.Gender,
			p.Occupation,
			p.EmployeeID,
			p.Version,
			p.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 1 {
			return nil
		}

		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM profiles WHERE subject_iss = $1 AND subject_sub = $2)
		`, r.issuer, string(p.Subject)).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return profilerepo.ErrNotFound
		}
		return profilerepo.ErrVersionConflict
	})
}

func scanProfile(row pgx.Row) (profilerepo.Profile, error) {
	var (
		id  uuid.UUID
		sub string
		p   profilerepo.Profile
	)
	err := row.Scan(
		&id,
		&sub,
		&p.Name,
		&p.Email,
		&p.PhoneNumber,
		&p.Address,
		&p.Gender,
		&p.Occupation,
		&p.EmployeeID,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profilerepo.Profile{}, profilerepo.ErrNotFound
		}
		return profilerepo.Profile{}, err
	}
	p.ID = domain.ProfileID(id.String())
	p.Subject = domain.SubjectID(sub)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

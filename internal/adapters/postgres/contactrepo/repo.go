package contactrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/contactrepo"
)

// Repo is a Postgres implementation of contactrepo.Repository.
type Repo struct {
	pool   *pgxpool.Pool
	issuer string
}

func NewRepo(pool *pgxpool.Pool, jwtIssuer string) *Repo {
	return &Repo{pool: pool, issuer: jwtIssuer}
}

func (r *Repo) Create(ctx context.Context, m contactrepo.Message) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid contact message id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO contact_messages (
			external_id, subject_iss, subject_sub, name, email, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		id,
		r.issuer,
		string(m.Subject),
		m.Name,
		m.Email,
		m.Message,
		m.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "contact_messages_external_id_unique" {
			return contactrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ContactMessageID) (contactrepo.Message, error) {
	if r.pool == nil {
		return contactrepo.Message{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return contactrepo.Message{}, contactrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT external_id, subject_sub, name, email, message, created_at
		FROM contact_messages
		WHERE external_id = $1 AND subject_iss = $2
	`, uid, r.issuer)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contactrepo.Message{}, contactrepo.ErrNotFound
		}
		return contactrepo.Message{}, err
	}
	return m, nil
}

func (r *Repo) ListBySubject(ctx context.Context, subject domain.SubjectID, limit int) ([]contactrepo.Message, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	// LIMIT NULL means no limit.
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT external_id, subject_sub, name, email, message, created_at
		FROM contact_messages
		WHERE subject_iss = $1 AND subject_sub = $2
		ORDER BY created_at DESC, external_id ASC
		LIMIT $3
	`, r.issuer, string(subject), lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]contactrepo.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(row pgx.Row) (contactrepo.Message, error) {
	var (
		id  uuid.UUID
		sub string
		m   contactrepo.Message
	)
	if err := row.Scan(&id, &sub, &m.Name, &m.Email, &m.Message, &m.CreatedAt); err != nil {
		return contactrepo.Message{}, err
	}
	m.ID = domain.ContactMessageID(id.String())
	m.Subject = domain.SubjectID(sub)
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

package contactrepo

import (
	"context"
	"errors"
	"time"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("contact message not found")
	ErrAlreadyExists = errors.New("contact message already exists")
)

type Message struct {
	ID      domain.ContactMessageID
	Subject domain.SubjectID

	Name    string
	Email   string
	Message string

	CreatedAt time.Time
}

// Repository persists submitted contact messages.
//
// ListBySubject returns newest first; ties are broken by ID ascending.
type Repository interface {
	Create(ctx context.Context, m Message) error
	GetByID(ctx context.Context, id domain.ContactMessageID) (Message, error)
	ListBySubject(ctx context.Context, subject domain.SubjectID, limit int) ([]Message, error)
}

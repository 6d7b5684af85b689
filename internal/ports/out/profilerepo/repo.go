package profilerepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
)

// Profile is the persistence shape used by the profile repository.
type Profile struct {
	ID      domain.ProfileID
	Subject domain.SubjectID

	Name        string
	Email       string
	PhoneNumber string
	Address     string
	Gender      string
	Occupation  string
	EmployeeID  string

	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository stores committed profiles, one per subject.
type Repository interface {
	Create(ctx context.Context, p Profile) error

	GetBySubject(ctx context.Context, subject domain.SubjectID) (Profile, error)

	// Update replaces the stored profile if its version still equals expectedVersion.
	// On success the stored version is p.Version, which callers set to expectedVersion+1.
	Update(ctx context.Context, p Profile, expectedVersion int64) error
}

package profilerepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/profilerepo"
)

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	bySubject map[domain.SubjectID]profilerepo.Profile
}

func NewRepo() *Repo {
	return &Repo{
		bySubject: make(map[domain.SubjectID]profilerepo.Profile),
	}
}

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySubject[p.Subject]; ok {
		return profilerepo.ErrAlreadyExists
	}
	for _, existing := range r.bySubject {
		if existing.ID == p.ID {
			return profilerepo.ErrAlreadyExists
		}
	}
	r.bySubject[p.Subject] = p
	return nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bySubject[subject]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return p, nil
}

func (r *Repo) Update(ctx context.Context, p profilerepo.Profile, expectedVersion int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.bySubject[p.Subject]
	if !ok {
		return profilerepo.ErrNotFound
	}
	if existing.Version != expectedVersion || existing.ID != p.ID {
		return profilerepo.ErrVersionConflict
	}
	// Identity and creation time are immutable.
	p.CreatedAt = existing.CreatedAt
	r.bySubject[p.Subject] = p
	return nil
}

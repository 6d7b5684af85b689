package contactrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/contactrepo"
)

// Repo is an in-memory implementation of contactrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID map[domain.ContactMessageID]contactrepo.Message
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.ContactMessageID]contactrepo.Message),
	}
}

func (r *Repo) Create(ctx context.Context, m contactrepo.Message) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.ID]; ok || m.ID == "" {
		return contactrepo.ErrAlreadyExists
	}
	r.byID[m.ID] = m
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ContactMessageID) (contactrepo.Message, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return contactrepo.Message{}, contactrepo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) ListBySubject(ctx context.Context, subject domain.SubjectID, limit int) ([]contactrepo.Message, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contactrepo.Message, 0)
	for _, m := range r.byID {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

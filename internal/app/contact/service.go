package contact

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/logging"
	clockport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/contactrepo"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SubmitResult is the outcome of one contact submit.
// Accepted is false when the draft was rejected; Notification then says why.
type SubmitResult struct {
	Accepted     bool
	Notification domain.Notification
	Message      *domain.ContactMessage
	VisibleUntil time.Time
}

// Confirmation reports whether the post-submit banner is still showing.
type Confirmation struct {
	Visible      bool
	Notification *domain.Notification
	VisibleUntil time.Time
}

type Service struct {
	repo contactrepo.Repository
	clk  clockport.Clock
	log  *zap.Logger

	newID func() domain.ContactMessageID

	// ConfirmationTTL is how long the thank-you banner stays visible.
	ConfirmationTTL time.Duration

	mu           sync.Mutex
	confirmUntil map[domain.SubjectID]time.Time
}

func NewService(repo contactrepo.Repository, clk clockport.Clock, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		log:  logging.OrNop(log),
		newID: func() domain.ContactMessageID {
			return domain.ContactMessageID(uuid.NewString())
		},
		ConfirmationTTL: 3 * time.Second,
		confirmUntil:    make(map[domain.SubjectID]time.Time),
	}
}

// Submit checks the draft and persists it when accepted.
// Stored values are trimmed; the sender name also has inner whitespace runs collapsed.
func (s *Service) Submit(ctx context.Context, subject domain.SubjectID, d domain.ContactDraft) (SubmitResult, error) {
	if n, ok := domain.CheckContact(d); !ok {
		return SubmitResult{Notification: n}, nil
	}

	now := s.clk.Now()
	m := contactrepo.Message{
		ID:        s.newID(),
		Subject:   subject,
		Name:      domain.NormalizeHumanName(d.Name),
		Email:     strings.TrimSpace(d.Email),
		Message:   strings.TrimSpace(d.Message),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return SubmitResult{}, err
	}
	s.log.Info("contact message stored",
		zap.String("subject", string(subject)),
		zap.String("message_id", string(m.ID)),
	)

	until := now.Add(s.ConfirmationTTL)
	s.mu.Lock()
	for sub, u := range s.confirmUntil {
		if !now.Before(u) {
			delete(s.confirmUntil, sub)
		}
	}
	s.confirmUntil[subject] = until
	s.mu.Unlock()

	dm := toDomain(m)
	return SubmitResult{
		Accepted:     true,
		Notification: domain.Banner(domain.SeveritySuccess, domain.ContactThanks),
		Message:      &dm,
		VisibleUntil: until,
	}, nil
}

// Confirmation is visible from an accepted submit until ConfirmationTTL has elapsed.
func (s *Service) Confirmation(subject domain.SubjectID) Confirmation {
	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.confirmUntil[subject]
	if !ok {
		return Confirmation{}
	}
	if !now.Before(until) {
		delete(s.confirmUntil, subject)
		return Confirmation{}
	}
	n := domain.Banner(domain.SeveritySuccess, domain.ContactThanks)
	return Confirmation{Visible: true, Notification: &n, VisibleUntil: until}
}

func (s *Service) ListMessages(ctx context.Context, subject domain.SubjectID, limit int) ([]domain.ContactMessage, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 || limit > MaxListLimit {
		return nil, &Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "VALIDATION_ERROR",
			Message: "invalid limit",
			Details: map[string]any{"limit": "must be between 1 and 100"},
		}
	}
	ms, err := s.repo.ListBySubject(ctx, subject, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ContactMessage, 0, len(ms))
	for _, m := range ms {
		out = append(out, toDomain(m))
	}
	return out, nil
}

// GetMessage returns one of the caller's messages. Messages owned by others are reported as missing.
func (s *Service) GetMessage(ctx context.Context, subject domain.SubjectID, id domain.ContactMessageID) (domain.ContactMessage, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, contactrepo.ErrNotFound) {
			return domain.ContactMessage{}, notFound()
		}
		return domain.ContactMessage{}, err
	}
	if m.Subject != subject {
		return domain.ContactMessage{}, notFound()
	}
	return toDomain(m), nil
}

func notFound() *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: "contact message not found",
	}
}

func toDomain(m contactrepo.Message) domain.ContactMessage {
	return domain.ContactMessage{
		ID:        m.ID,
		Subject:   m.Subject,
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

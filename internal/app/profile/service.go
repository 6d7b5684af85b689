package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/logging"
	clockport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/profilerepo"
)

// DefaultSessionTTL is how long an untouched edit session survives.
const DefaultSessionTTL = 30 * time.Minute

// session is an open edit of one subject's profile.
// baseVersion is the committed version the changeset was started from.
// rev counts staged patches so a save can tell whether it committed all of them.
type session struct {
	baseVersion int64
	pending     domain.ProfileFields
	dirty       bool
	rev         uint64
	touched     time.Time
}

type Service struct {
	repo profilerepo.Repository
	clk  clockport.Clock
	log  *zap.Logger

	// SessionTTL bounds how long an idle edit session is kept.
	SessionTTL time.Duration

	newProfileID func() domain.ProfileID

	mu       sync.Mutex
	sessions map[domain.SubjectID]*session
}

func NewService(repo profilerepo.Repository, clk clockport.Clock, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		log:  logging.OrNop(log),

		SessionTTL: DefaultSessionTTL,
		newProfileID: func() domain.ProfileID {
			return domain.ProfileID(uuid.NewString())
		},
		sessions: make(map[domain.SubjectID]*session),
	}
}

func (s *Service) Get(ctx context.Context, subject domain.SubjectID) (Editor, error) {
	rec, err := s.committed(ctx, subject)
	if err != nil {
		return Editor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return editorFor(rec, s.live(subject, s.clk.Now())), nil
}

// BeginEdit enters edit mode. It is a no-op when already editing.
func (s *Service) BeginEdit(ctx context.Context, subject domain.SubjectID) (Editor, error) {
	rec, err := s.committed(ctx, subject)
	if err != nil {
		return Editor{}, err
	}
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)
	sess, ok := s.sessions[subject]
	if !ok {
		sess = &session{baseVersion: rec.Version, pending: rec.ProfileFields}
		s.sessions[subject] = sess
	}
	sess.touched = now
	return editorFor(rec, sess), nil
}

// Stage applies p to the pending changeset. Any specified field marks the editor dirty,
// even when the value is unchanged.
func (s *Service) Stage(ctx context.Context, subject domain.SubjectID, p Patch) (Editor, error) {
	if p.empty() {
		return Editor{}, &Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "VALIDATION_ERROR",
			Message: "no fields to change",
		}
	}
	if details := nullRequired(p); len(details) > 0 {
		return Editor{}, &Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "VALIDATION_ERROR",
			Message: "invalid profile patch",
			Details: details,
		}
	}

	rec, err := s.committed(ctx, subject)
	if err != nil {
		return Editor{}, err
	}

	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.live(subject, now)
	if sess == nil {
		return Editor{}, editModeRequired()
	}
	applyPatch(&sess.pending, p)
	sess.dirty = true
	sess.rev++
	sess.touched = now
	return editorFor(rec, sess), nil
}

// Save validates the pending changeset and commits it in one versioned write.
//
// An invalid employee ID leaves the changeset and the dirty flag in place. A concurrent
// commit by another editor surfaces as VERSION_CONFLICT and the changeset is kept.
// Patches staged while the write is in flight stay pending and keep the editor dirty.
func (s *Service) Save(ctx context.Context, subject domain.SubjectID) (SaveResult, error) {
	rec, err := s.committed(ctx, subject)
	if err != nil {
		return SaveResult{}, err
	}

	now := s.clk.Now()
	s.mu.Lock()
	sess := s.live(subject, now)
	if sess == nil {
		s.mu.Unlock()
		return SaveResult{}, editModeRequired()
	}
	sess.touched = now
	if !sess.dirty {
		e := editorFor(rec, sess)
		s.mu.Unlock()
		return SaveResult{
			Editor:       e,
			Notification: domain.Toast(domain.SeverityInfo, "", "No changes to save."),
		}, nil
	}
	if !domain.ValidateEmployeeID(sess.pending.EmployeeID).Valid() {
		e := editorFor(rec, sess)
		s.mu.Unlock()
		return SaveResult{
			Editor:       e,
			Notification: domain.Toast(domain.SeverityError, "", "Invalid Employee ID. Please enter a valid ID."),
		}, nil
	}
	base, rev := sess.baseVersion, sess.rev
	next := rec
	next.ProfileFields = sess.pending
	next.Version = base + 1
	next.UpdatedAt = now
	s.mu.Unlock()

	if err := s.repo.Update(ctx, toRepo(next), base); err != nil {
		if errors.Is(err, profilerepo.ErrVersionConflict) {
			return SaveResult{}, &Error{
				Status:  http.StatusConflict,
				Code:    "VERSION_CONFLICT",
				Message: "profile was changed by another session; cancel and edit again",
			}
		}
		return SaveResult{}, err
	}
	s.log.Info("profile saved",
		zap.String("subject", string(subject)),
		zap.Int64("version", next.Version),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.sessions[subject]
	if cur == sess {
		if sess.baseVersion == base {
			sess.baseVersion = next.Version
		}
		if sess.rev == rev {
			sess.dirty = false
		}
	}
	return SaveResult{
		Saved:        true,
		Editor:       editorFor(next, cur),
		Notification: domain.Toast(domain.SeveritySuccess, "", "Changes saved successfully!"),
	}, nil
}

// Cancel discards the changeset and leaves edit mode. The committed profile is untouched.
func (s *Service) Cancel(ctx context.Context, subject domain.SubjectID) (Editor, error) {
	rec, err := s.committed(ctx, subject)
	if err != nil {
		return Editor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, subject)
	return editorFor(rec, nil), nil
}

// live returns the subject's session, dropping it when it has been idle past SessionTTL.
// Callers hold s.mu.
func (s *Service) live(subject domain.SubjectID, now time.Time) *session {
	sess, ok := s.sessions[subject]
	if !ok {
		return nil
	}
	if s.expired(sess, now) {
		delete(s.sessions, subject)
		return nil
	}
	return sess
}

// prune drops every idle session. Callers hold s.mu.
func (s *Service) prune(now time.Time) {
	for subject, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, subject)
		}
	}
}

func (s *Service) expired(sess *session, now time.Time) bool {
	return s.SessionTTL > 0 && now.Sub(sess.touched) > s.SessionTTL
}

// committed loads the subject's profile, seeding the placeholder on first access.
func (s *Service) committed(ctx context.Context, subject domain.SubjectID) (domain.ProfileRecord, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err == nil {
		return toDomain(p), nil
	}
	if !errors.Is(err, profilerepo.ErrNotFound) {
		return domain.ProfileRecord{}, err
	}

	now := s.clk.Now()
	rec := domain.ProfileRecord{
		ID:            s.newProfileID(),
		Subject:       subject,
		ProfileFields: domain.PlaceholderProfile(),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, toRepo(rec)); err != nil {
		if errors.Is(err, profilerepo.ErrAlreadyExists) {
			// Lost a seeding race; the winner's record is authoritative.
			p, err := s.repo.GetBySubject(ctx, subject)
			if err != nil {
				return domain.ProfileRecord{}, err
			}
			return toDomain(p), nil
		}
		return domain.ProfileRecord{}, fmt.Errorf("seed profile: %w", err)
	}
	return rec, nil
}

func editModeRequired() *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    "EDIT_MODE_REQUIRED",
		Message: "profile is not in edit mode",
	}
}

func nullRequired(p Patch) map[string]any {
	details := map[string]any{}
	check := func(name string, o Optional[string]) {
		if o.IsNull() {
			details[name] = "cannot be null"
		}
	}
	check("name", p.Name)
	check("email", p.Email)
	check("phoneNumber", p.PhoneNumber)
	check("gender", p.Gender)
	check("occupation", p.Occupation)
	check("employeeId", p.EmployeeID)
	return details
}

func applyPatch(f *domain.ProfileFields, p Patch) {
	set := func(dst *string, o Optional[string]) {
		if !o.IsSpecified() {
			return
		}
		if o.IsNull() {
			*dst = ""
			return
		}
		*dst = o.Value()
	}
	set(&f.Name, p.Name)
	set(&f.Email, p.Email)
	set(&f.PhoneNumber, p.PhoneNumber)
	set(&f.Address, p.Address)
	set(&f.Gender, p.Gender)
	set(&f.Occupation, p.Occupation)
	set(&f.EmployeeID, p.EmployeeID)
}

func editorFor(rec domain.ProfileRecord, sess *session) Editor {
	e := Editor{Profile: rec}
	if sess != nil {
		pending := sess.pending
		e.Pending = &pending
		e.EditMode = true
		e.Dirty = sess.dirty
	}
	return e
}

func toDomain(p profilerepo.Profile) domain.ProfileRecord {
	return domain.ProfileRecord{
		ID:      p.ID,
		Subject: p.Subject,
		ProfileFields: domain.ProfileFields{
			Name:        p.Name,
			Email:       p.Email,
			PhoneNumber: p.PhoneNumber,
			Address:     p.Address,
			Gender:      p.Gender,
			Occupation:  p.Occupation,
			EmployeeID:  p.EmployeeID,
		},
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toRepo(r domain.ProfileRecord) profilerepo.Profile {
	return profilerepo.Profile{
		ID:          r.ID,
		Subject:     r.Subject,
		Name:        r.Name,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
		Gender:      r.Gender,
		Occupation:  r.Occupation,
		EmployeeID:  r.EmployeeID,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

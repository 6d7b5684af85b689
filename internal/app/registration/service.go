package registration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/logging"
	clockport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/passwordhash"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/registrar"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/securestore"
)

const (
	msgOopsSummary = "Oops!"
	msgOopsDetail  = "Something went wrong! Please try again later!"
)

type Service struct {
	store     securestore.Store
	registrar registrar.Registrar
	hasher    passwordhash.Hasher
	clk       clockport.Clock
	log       *zap.Logger

	// RedirectDelay and RedirectPath describe the navigation scheduled after a successful submit.
	RedirectDelay time.Duration
	RedirectPath  string

	mu       sync.Mutex
	inFlight map[domain.SubjectID]struct{}
}

func NewService(store securestore.Store, reg registrar.Registrar, hasher passwordhash.Hasher, clk clockport.Clock, log *zap.Logger) *Service {
	return &Service{
		store:         store,
		registrar:     reg,
		hasher:        hasher,
		clk:           clk,
		log:           logging.OrNop(log),
		RedirectDelay: 1500 * time.Millisecond,
		RedirectPath:  "/",
		inFlight:      make(map[domain.SubjectID]struct{}),
	}
}

// StartSession records the prior-step values (bearer token, name, email) for subject.
func (s *Service) StartSession(ctx context.Context, subject domain.SubjectID, in SessionInput) error {
	if in.SecretToken == nil && in.UserName == nil && in.UserEmail == nil {
		return &Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "VALIDATION_ERROR",
			Message: "no session values provided",
		}
	}
	if in.SecretToken != nil && *in.SecretToken == "" {
		return &Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "VALIDATION_ERROR",
			Message: "invalid secretToken",
			Details: map[string]any{"secretToken": "must be non-empty"},
		}
	}

	set := func(key string, v *string) error {
		if v == nil {
			return nil
		}
		if err := s.store.Set(ctx, subject, key, *v); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
		return nil
	}
	if err := set(securestore.KeySecretToken, in.SecretToken); err != nil {
		return err
	}
	if err := set(securestore.KeyUserName, in.UserName); err != nil {
		return err
	}
	return set(securestore.KeyUserEmail, in.UserEmail)
}

// Draft returns an empty draft whose name and email are pre-filled from the stored
// prior-step values, falling back to fb when nothing is stored.
func (s *Service) Draft(ctx context.Context, subject domain.SubjectID, fb Prefill) (domain.RegistrationDraft, error) {
	name, err := s.lookup(ctx, subject, securestore.KeyUserName)
	if err != nil {
		return domain.RegistrationDraft{}, err
	}
	email, err := s.lookup(ctx, subject, securestore.KeyUserEmail)
	if err != nil {
		return domain.RegistrationDraft{}, err
	}
	if name == "" {
		name = fb.Name
	}
	if email == "" {
		email = fb.Email
	}
	return domain.RegistrationDraft{Name: name, Email: email}, nil
}

// Validate runs the field predicates plus any input limit of the configured hasher.
func (s *Service) Validate(d domain.RegistrationDraft) domain.ValidatedRegistration {
	return domain.ValidateRegistration(d).WithPasswordLimit(passwordhash.MaxPasswordBytes(s.hasher))
}

// Submit forwards a submittable draft to the registration service exactly once.
//
// Remote rejections and transport failures are reported through SubmitResult.Notification.
// A returned error means the submit was refused before any call was made, the caller
// went away before a reply arrived, or local storage failed. A 200 reply is always
// recorded, and the session token is consumed by it.
func (s *Service) Submit(ctx context.Context, subject domain.SubjectID, d domain.RegistrationDraft) (SubmitResult, error) {
	v := s.Validate(d)
	if !v.CanSubmit() {
		details := map[string]any{}
		for field, why := range v.Violations() {
			details[field] = string(why)
		}
		return SubmitResult{}, &Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "SUBMIT_NOT_ENABLED",
			Message: "registration cannot be submitted until name, phone and password are valid",
			Details: details,
		}
	}

	if !s.begin(subject) {
		return SubmitResult{}, &Error{
			Status:  http.StatusConflict,
			Code:    "SUBMISSION_IN_PROGRESS",
			Message: "a registration submit is already in progress",
		}
	}
	defer s.end(subject)

	token, err := s.store.Get(ctx, subject, securestore.KeySecretToken)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) {
			return SubmitResult{}, &Error{
				Status:  http.StatusConflict,
				Code:    "SESSION_NOT_STARTED",
				Message: "no registration session token is stored for the caller",
			}
		}
		return SubmitResult{}, err
	}

	hashed, err := s.hasher.Hash(v.Password.Value)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("hash password: %w", err)
	}
	payload := registrar.Payload{
		EmpName:     d.Name,
		EmpEmail:    d.Email,
		Mobile:      d.Phone,
		EmpGender:   string(v.Gender.Value),
		EmpPassword: hashed,
		State:       d.State,
		City:        d.City,
		EmpStatus:   string(v.JobRole.Value),
	}

	log := s.log.With(zap.String("subject", string(subject)))
	if err := ctx.Err(); err != nil {
		log.Info("registration submit canceled before request", zap.Error(err))
		return SubmitResult{}, err
	}
	resp, err := s.registrar.Register(ctx, token, payload)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("registration submit canceled", zap.Error(ctxErr))
			return SubmitResult{}, ctxErr
		}
		log.Warn("registration request failed", zap.Error(err))
		return SubmitResult{
			Notification: domain.Toast(domain.SeverityError, "Error", "Please try again!"),
		}, nil
	}

	log = log.With(zap.Int("remote_status", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusOK:
		// The remote side has registered the user; record it even if the caller left.
		return s.registered(context.WithoutCancel(ctx), log, subject, d.Email, resp)
	case resp.StatusCode == http.StatusInternalServerError:
		log.Warn("registration service error")
		return SubmitResult{
			RemoteStatus: resp.StatusCode,
			Notification: domain.Toast(domain.SeverityError, msgOopsSummary, msgOopsDetail),
		}, nil
	case resp.Message != nil:
		log.Info("registration rejected")
		return SubmitResult{
			RemoteStatus: resp.StatusCode,
			Notification: domain.Toast(domain.SeverityError, "Registration Failed", *resp.Message),
		}, nil
	default:
		log.Warn("registration rejected without message")
		return SubmitResult{
			RemoteStatus: resp.StatusCode,
			Notification: domain.Toast(domain.SeverityError, msgOopsSummary, msgOopsDetail),
		}, nil
	}
}

func (s *Service) registered(ctx context.Context, log *zap.Logger, subject domain.SubjectID, email string, resp registrar.Response) (SubmitResult, error) {
	if resp.SecretToken != nil {
		if err := s.store.Set(ctx, subject, securestore.KeyTempRegisterToken, *resp.SecretToken); err != nil {
			return SubmitResult{}, fmt.Errorf("store register token: %w", err)
		}
	} else {
		log.Warn("registration accepted without SECRET_TOKEN")
	}
	if err := s.store.Set(ctx, subject, securestore.KeyRegisterEmail, email); err != nil {
		return SubmitResult{}, fmt.Errorf("store register email: %w", err)
	}
	// The session bearer token is single use.
	if err := s.store.Delete(ctx, subject, securestore.KeySecretToken); err != nil {
		log.Warn("clear session token", zap.Error(err))
	}

	msg := ""
	if resp.Message != nil {
		msg = *resp.Message
	}
	log.Info("registration accepted")
	return SubmitResult{
		Registered:   true,
		RemoteStatus: resp.StatusCode,
		Notification: domain.Toast(domain.SeveritySuccess, "Email Verification", msg),
		Redirect: &Redirect{
			Path:  s.RedirectPath,
			Delay: s.RedirectDelay,
			At:    s.clk.Now().Add(s.RedirectDelay),
		},
	}, nil
}

func (s *Service) lookup(ctx context.Context, subject domain.SubjectID, key string) (string, error) {
	v, err := s.store.Get(ctx, subject, key)
	if err != nil {
		if errors.Is(err, securestore.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

func (s *Service) begin(subject domain.SubjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[subject]; busy {
		return false
	}
	s.inFlight[subject] = struct{}{}
	return true
}

func (s *Service) end(subject domain.SubjectID) {
	s.mu.Lock()
	delete(s.inFlight, subject)
	s.mu.Unlock()
}

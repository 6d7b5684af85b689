package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/contact"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/profile"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/registration"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/logging"
	clockport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server implements the HTTP handlers on top of the application services.
type Server struct {
	Registration *registration.Service
	Contact      *contact.Service
	Profile      *profile.Service
	Idem         idempotency.Store

	clk      clockport.Clock
	log      *zap.Logger
	validate *validator.Validate
}

func NewServer(reg *registration.Service, ct *contact.Service, prof *profile.Service, idem idempotency.Store, clk clockport.Clock, log *zap.Logger) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{
		Registration: reg,
		Contact:      ct,
		Profile:      prof,
		Idem:         idem,
		clk:          clk,
		log:          logging.OrNop(log),
		validate:     v,
	}
}

// principal writes a 401 and returns false when the request carries no subject.
func principal(w http.ResponseWriter, r *http.Request) (domain.SubjectID, string, string, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", "", "", false
	}
	return domain.SubjectID(p.Subject), p.Name, p.Email, true
}

// decodeBody decodes and shape-checks a JSON request body, writing a 422 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "missing request body"
		}
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", msg, nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) map[string]any {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return map[string]any{"body": err.Error()}
	}
	out := make(map[string]any, len(ves))
	for _, fe := range ves {
		if fe.Param() != "" {
			out[fe.Field()] = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		} else {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

func (s *Server) PutRegistrationSession(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	var body RegistrationSessionRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	err := s.Registration.StartSession(r.Context(), sub, registration.SessionInput{
		SecretToken: body.SecretToken,
		UserName:    body.UserName,
		UserEmail:   body.UserEmail,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetRegistrationDraft(w http.ResponseWriter, r *http.Request) {
	sub, name, email, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := s.Registration.Draft(r.Context(), sub, registration.Prefill{Name: name, Email: email})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registrationDraftFromDomain(d))
}

func (s *Server) ValidateRegistration(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := principal(w, r); !ok {
		return
	}
	var body RegistrationDraft
	if !s.decodeBody(w, r, &body) {
		return
	}
	v := s.Registration.Validate(body.toDomain())
	writeJSON(w, http.StatusOK, registrationValidationFromDomain(v))
}

// SubmitRegistration honors an optional Idempotency-Key:
// - replay when subject+key+route+bodyHash match a completed registration
// - reject when the key was first used with a different body (409)
func (s *Server) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	var body RegistrationDraft
	if !s.decodeBody(w, r, &body) {
		return
	}
	ctx := r.Context()

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var respFP idempotency.Fingerprint
	useIdem := key != "" && s.Idem != nil
	if useIdem {
		bodyHash, err := idempotency.HashBody(body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		metaFP := idempotency.Fingerprint{
			Key:     idempotency.Key(key),
			Subject: sub,
			Method:  http.MethodPost,
			Route:   "/registration",
		}
		meta, _, err := s.Idem.Claim(ctx, metaFP, idempotency.Record{
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.clk.Now(),
		})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, found, err := s.Idem.Get(ctx, respFP); err != nil {
			s.writeServiceError(w, r, err)
			return
		} else if found && rec.StatusCode == http.StatusOK && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	res, err := s.Registration.Submit(ctx, sub, body.toDomain())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := registrationSubmitFromApp(res)

	// Only completed registrations are replayable; failed attempts may be retried with the same key.
	if useIdem && res.Registered {
		b, err := json.Marshal(resp)
		if err == nil {
			err = s.Idem.Put(context.WithoutCancel(ctx), respFP, idempotency.Record{
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   s.clk.Now(),
			})
		}
		if err != nil {
			s.log.Warn("idempotency record not stored",
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("subject", string(sub)),
				zap.Error(err),
			)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) SubmitContact(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	var body ContactDraft
	if !s.decodeBody(w, r, &body) {
		return
	}
	res, err := s.Contact.Submit(r.Context(), sub, domain.ContactDraft{
		Name:    body.Name,
		Email:   body.Email,
		Message: body.Message,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Accepted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, contactSubmitFromApp(res))
}

func (s *Server) GetContactConfirmation(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	c := s.Contact.Confirmation(sub)
	out := ContactConfirmation{Visible: c.Visible}
	if c.Notification != nil {
		n := notificationFromDomain(*c.Notification)
		out.Notification = &n
		until := c.VisibleUntil
		out.VisibleUntil = &until
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ListContactMessages(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid limit parameter", map[string]any{"limit": err.Error()})
		return
	}
	n := 0
	if limit != nil {
		n = *limit
		if n == 0 {
			n = -1
		}
	}
	ms, err := s.Contact.ListMessages(r.Context(), sub, n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := ContactMessageList{Messages: make([]ContactMessage, 0, len(ms))}
	for _, m := range ms {
		out.Messages = append(out.Messages, contactMessageFromDomain(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetContactMessage(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "messageId", chi.URLParam(r, "messageId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid messageId", map[string]any{"messageId": err.Error()})
		return
	}
	m, err := s.Contact.GetMessage(r.Context(), sub, domain.ContactMessageID(id.String()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactMessageFromDomain(m))
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	e, err := s.Profile.Get(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileEditorFromApp(e))
}

func (s *Server) BeginProfileEdit(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	e, err := s.Profile.BeginEdit(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileEditorFromApp(e))
}

func (s *Server) StageProfile(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	var body ProfilePatch
	if !s.decodeBody(w, r, &body) {
		return
	}
	details := map[string]any{}
	for name, f := range body.fields() {
		if !f.IsSpecified() || f.IsNull() {
			continue
		}
		v, _ := f.Get()
		if err := s.validate.Var(v, profilePatchRules[name]); err != nil {
			details[name] = profilePatchRules[name]
		}
	}
	if len(details) > 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid profile patch", details)
		return
	}

	e, err := s.Profile.Stage(r.Context(), sub, body.toApp())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileEditorFromApp(e))
}

func (s *Server) SaveProfile(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	res, err := s.Profile.Save(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Notification.Severity == domain.SeverityError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ProfileSaveResponse{
		Saved:        res.Saved,
		Editor:       profileEditorFromApp(res.Editor),
		Notification: notificationFromDomain(res.Notification),
	})
}

func (s *Server) CancelProfileEdit(w http.ResponseWriter, r *http.Request) {
	sub, _, _, ok := principal(w, r)
	if !ok {
		return
	}
	e, err := s.Profile.Cancel(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileEditorFromApp(e))
}

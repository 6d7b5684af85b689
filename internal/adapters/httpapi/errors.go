package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/contact"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/profile"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/registration"
)

// ErrorResponse is the envelope for every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps application errors to the envelope. Anything unrecognized is a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		re *registration.Error
		ce *contact.Error
		pe *profile.Error
	)
	switch {
	case errors.As(err, &re):
		writeError(w, r, re.Status, re.Code, re.Message, re.Details)
	case errors.As(err, &ce):
		writeError(w, r, ce.Status, ce.Code, ce.Message, ce.Details)
	case errors.As(err, &pe):
		writeError(w, r, pe.Status, pe.Code, pe.Message, pe.Details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.log.Info("request canceled", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, r, http.StatusRequestTimeout, "REQUEST_CANCELED", "request was canceled", nil)
	default:
		s.log.Error("internal error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

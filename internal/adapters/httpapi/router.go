package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/logging"
)

type RouterOptions struct {
	// AuthMiddleware guards every route except /healthz. Nil leaves routes unauthenticated,
	// in which case handlers answer 401 for lack of a principal.
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logging.OrNop(opts.Logger)))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Route("/registration", func(r chi.Router) {
			r.Put("/session", s.PutRegistrationSession)
			r.Get("/draft", s.GetRegistrationDraft)
			r.Post("/validate", s.ValidateRegistration)
			r.Post("/", s.SubmitRegistration)
		})

		r.Route("/contact", func(r chi.Router) {
			r.Post("/", s.SubmitContact)
			r.Get("/confirmation", s.GetContactConfirmation)
			r.Get("/messages", s.ListContactMessages)
			r.Get("/messages/{messageId}", s.GetContactMessage)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", s.GetProfile)
			r.Patch("/", s.StageProfile)
			r.Post("/edit", s.BeginProfileEdit)
			r.Post("/save", s.SaveProfile)
			r.Post("/cancel", s.CancelProfileEdit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

// requestLogger logs one line per request. Bodies are never logged.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

package registration

import (
	"time"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
)

// SessionInput carries values produced by the previous onboarding step.
// Nil fields are left untouched.
type SessionInput struct {
	SecretToken *string
	UserName    *string
	UserEmail   *string
}

// Prefill is the fallback identity used when no prior-step values are stored.
type Prefill struct {
	Name  string
	Email string
}

// Redirect tells the client where to go once the notification has been shown.
type Redirect struct {
	Path  string
	Delay time.Duration
	At    time.Time
}

// SubmitResult is the user-facing outcome of one submit.
type SubmitResult struct {
	Registered   bool
	RemoteStatus int
	Notification domain.Notification
	Redirect     *Redirect
}

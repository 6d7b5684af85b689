package clock

import "time"

// Clock provides time to the application.
// Confirmation windows and redirect deadlines are computed from it, so tests
// substitute a manual implementation.
type Clock interface {
	Now() time.Time
}

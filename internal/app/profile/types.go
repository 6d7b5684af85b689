package profile

import "github.com/Overland-East-Bay/trip-estimator-api/internal/domain"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// Patch stages changes to the pending profile. Only Address may be null (cleared).
type Patch struct {
	Name        Optional[string]
	Email       Optional[string]
	PhoneNumber Optional[string]
	Address     Optional[string]
	Gender      Optional[string]
	Occupation  Optional[string]
	EmployeeID  Optional[string]
}

func (p Patch) empty() bool {
	return !p.Name.IsSpecified() &&
		!p.Email.IsSpecified() &&
		!p.PhoneNumber.IsSpecified() &&
		!p.Address.IsSpecified() &&
		!p.Gender.IsSpecified() &&
		!p.Occupation.IsSpecified() &&
		!p.EmployeeID.IsSpecified()
}

// Editor is the caller's view of the profile editor.
// Pending is nil outside edit mode.
type Editor struct {
	Profile  domain.ProfileRecord
	Pending  *domain.ProfileFields
	EditMode bool
	Dirty    bool
}

// SaveResult carries the editor state after a save attempt and the notification to show.
type SaveResult struct {
	Saved        bool
	Editor       Editor
	Notification domain.Notification
}

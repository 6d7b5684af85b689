package domain

// Violation enumerates the reasons a single field can fail validation.
// The zero value means the field is valid.
type Violation string

const (
	ViolationNone             Violation = ""
	ViolationRequired         Violation = "REQUIRED"
	ViolationInvalidChars     Violation = "INVALID_CHARACTERS"
	ViolationTooLong          Violation = "TOO_LONG"
	ViolationTooShort         Violation = "TOO_SHORT"
	ViolationBadFormat        Violation = "BAD_FORMAT"
	ViolationForbiddenChars   Violation = "FORBIDDEN_CHARACTERS"
	ViolationMismatch         Violation = "MISMATCH"
	ViolationUnknownSiteCode  Violation = "UNKNOWN_SITE_CODE"
	ViolationUnsupportedValue Violation = "UNSUPPORTED_VALUE"
)

// FieldResult is the tagged result of validating one raw field value.
type FieldResult[T any] struct {
	Value     T
	Violation Violation
}

func (r FieldResult[T]) Valid() bool { return r.Violation == ViolationNone }

func valid[T any](v T) FieldResult[T] { return FieldResult[T]{Value: v} }

func invalid[T any](v T, why Violation) FieldResult[T] {
	return FieldResult[T]{Value: v, Violation: why}
}

package domain

import (
	"regexp"
	"strings"
)

const (
	NameMaxLength     = 25
	PhoneDigits       = 10
	PasswordMinLength = 8
)

var (
	nameCharsRe = regexp.MustCompile(`^[a-zA-Z ]*$`)
	digitsRe    = regexp.MustCompile(`^[0-9]*$`)
	emailRe     = regexp.MustCompile(`^[^` + jsSpaceClass + `@]+@[^` + jsSpaceClass + `@]+\.[^` + jsSpaceClass + `@]+$`)
)

// Gender is the single-letter code sent to the registration service.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// EmploymentStatus is the emp_status code derived from the selected job role.
type EmploymentStatus string

const (
	EmploymentUnset     EmploymentStatus = "0"
	EmploymentApplicant EmploymentStatus = "1"
	EmploymentApprover  EmploymentStatus = "2"
)

// RegistrationDraft holds raw registration form values exactly as typed.
type RegistrationDraft struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	Gender          string // male|female|other
	State           string
	City            string
	JobRole         string // Applicant|Approver
}

// ValidatedRegistration is the result of running every field predicate over a draft.
// It is derived on demand and never stored next to the raw draft.
type ValidatedRegistration struct {
	Name            FieldResult[string]
	Email           FieldResult[string]
	Phone           FieldResult[string]
	Password        FieldResult[string]
	ConfirmPassword FieldResult[string]
	Gender          FieldResult[Gender]
	State           FieldResult[string]
	City            FieldResult[string]
	JobRole         FieldResult[EmploymentStatus]

	StateKnown    bool
	Strength      int
	StrengthLabel string
}

// CanSubmit reports whether the submit action is enabled.
// Only name, phone, password and confirm-password gate submission.
func (v ValidatedRegistration) CanSubmit() bool {
	return v.Name.Valid() && v.Phone.Valid() && v.Password.Valid() && v.ConfirmPassword.Valid()
}

// InlineErrors returns the per-field helper text a form shows under invalid, non-empty inputs.
func (v ValidatedRegistration) InlineErrors() map[string]string {
	out := map[string]string{}
	if !v.Name.Valid() && v.Name.Value != "" {
		out["name"] = "Should not contain special characters"
	}
	if !v.Phone.Valid() && v.Phone.Value != "" {
		out["phone"] = "Should contain 10 digits"
	}
	if !v.Email.Valid() && trimJS(v.Email.Value) != "" {
		out["email"] = "Invalid email address"
	}
	switch {
	case v.Password.Violation == ViolationTooLong:
		out["password"] = "Password is too long"
	case !v.Password.Valid() && v.Password.Value != "":
		out["password"] = "Minimum 8 characters, no '-' or '\"'"
	}
	if !v.ConfirmPassword.Valid() && v.ConfirmPassword.Value != "" {
		out["confirmPassword"] = "Should match password"
	}
	return out
}

// Violations lists every failing field keyed by its JSON name.
func (v ValidatedRegistration) Violations() map[string]Violation {
	out := map[string]Violation{}
	add := func(name string, why Violation) {
		if why != ViolationNone {
			out[name] = why
		}
	}
	add("name", v.Name.Violation)
	add("email", v.Email.Violation)
	add("phone", v.Phone.Violation)
	add("password", v.Password.Violation)
	add("confirmPassword", v.ConfirmPassword.Violation)
	add("gender", v.Gender.Violation)
	add("state", v.State.Violation)
	add("city", v.City.Violation)
	add("jobRole", v.JobRole.Violation)
	return out
}

// WithPasswordLimit marks an otherwise valid password TOO_LONG when it exceeds maxBytes.
// A non-positive maxBytes means no limit.
func (v ValidatedRegistration) WithPasswordLimit(maxBytes int) ValidatedRegistration {
	if maxBytes > 0 && v.Password.Valid() && len(v.Password.Value) > maxBytes {
		v.Password = invalid(v.Password.Value, ViolationTooLong)
	}
	return v
}

func ValidateRegistration(d RegistrationDraft) ValidatedRegistration {
	strength := PasswordStrength(d.Password)
	return ValidatedRegistration{
		Name:            ValidateName(d.Name),
		Email:           ValidateEmail(d.Email),
		Phone:           ValidatePhone(d.Phone),
		Password:        ValidatePassword(d.Password),
		ConfirmPassword: ValidateConfirmPassword(d.Password, d.ConfirmPassword),
		Gender:          ParseGender(d.Gender),
		State:           requireText(d.State),
		City:            requireText(d.City),
		JobRole:         ParseJobRole(d.JobRole),
		StateKnown:      IsKnownState(d.State),
		Strength:        strength,
		StrengthLabel:   StrengthLabel(strength),
	}
}

// ValidateName accepts 1-25 ASCII letters or spaces.
func ValidateName(s string) FieldResult[string] {
	switch {
	case s == "":
		return invalid(s, ViolationRequired)
	case !nameCharsRe.MatchString(s):
		return invalid(s, ViolationInvalidChars)
	case len(s) > NameMaxLength:
		return invalid(s, ViolationTooLong)
	}
	return valid(s)
}

// ValidatePhone accepts exactly ten ASCII digits.
func ValidatePhone(s string) FieldResult[string] {
	switch {
	case s == "":
		return invalid(s, ViolationRequired)
	case !digitsRe.MatchString(s):
		return invalid(s, ViolationInvalidChars)
	case len(s) != PhoneDigits:
		return invalid(s, ViolationBadFormat)
	}
	return valid(s)
}

// ValidatePassword requires at least eight characters and rejects '-' and '"'.
// Line terminators are rejected as well.
func ValidatePassword(s string) FieldResult[string] {
	switch {
	case s == "":
		return invalid(s, ViolationRequired)
	case strings.ContainsAny(s, "-\"\n\r\u2028\u2029"):
		return invalid(s, ViolationForbiddenChars)
	case jsLength(s) < PasswordMinLength:
		return invalid(s, ViolationTooShort)
	}
	return valid(s)
}

func ValidateConfirmPassword(password, confirm string) FieldResult[string] {
	if password != confirm {
		return invalid(confirm, ViolationMismatch)
	}
	return valid(confirm)
}

// ValidateEmail checks the local@domain.tld shape shared by every form.
func ValidateEmail(s string) FieldResult[string] {
	if trimJS(s) == "" {
		return invalid(s, ViolationRequired)
	}
	if !emailRe.MatchString(s) {
		return invalid(s, ViolationBadFormat)
	}
	return valid(s)
}

func ParseGender(s string) FieldResult[Gender] {
	switch s {
	case "male":
		return valid(GenderMale)
	case "female":
		return valid(GenderFemale)
	case "other":
		return valid(GenderOther)
	case "":
		return invalid(GenderMale, ViolationRequired)
	}
	return invalid(GenderMale, ViolationUnsupportedValue)
}

func ParseJobRole(s string) FieldResult[EmploymentStatus] {
	switch s {
	case "Applicant":
		return valid(EmploymentApplicant)
	case "Approver":
		return valid(EmploymentApprover)
	case "":
		return invalid(EmploymentUnset, ViolationRequired)
	}
	return invalid(EmploymentUnset, ViolationUnsupportedValue)
}

func requireText(s string) FieldResult[string] {
	if s == "" {
		return invalid(s, ViolationRequired)
	}
	return valid(s)
}

package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/contact"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/profile"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/registration"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
)

type RegistrationSessionRequest struct {
	SecretToken *string `json:"secretToken,omitempty" validate:"omitempty,max=4096"`
	UserName    *string `json:"userName,omitempty" validate:"omitempty,max=256"`
	UserEmail   *string `json:"userEmail,omitempty" validate:"omitempty,max=320"`
}

type RegistrationDraft struct {
	Name            string `json:"name" validate:"max=256"`
	Email           string `json:"email" validate:"max=320"`
	Phone           string `json:"phone" validate:"max=64"`
	Password        string `json:"password" validate:"max=256"`
	ConfirmPassword string `json:"confirmPassword" validate:"max=256"`
	Gender          string `json:"gender" validate:"omitempty,oneof=male female other"`
	State           string `json:"state" validate:"max=128"`
	City            string `json:"city" validate:"max=128"`
	JobRole         string `json:"jobRole" validate:"omitempty,oneof=Applicant Approver"`
}

func (d RegistrationDraft) toDomain() domain.RegistrationDraft {
	return domain.RegistrationDraft{
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Password:        d.Password,
		ConfirmPassword: d.ConfirmPassword,
		Gender:          d.Gender,
		State:           d.State,
		City:            d.City,
		JobRole:         d.JobRole,
	}
}

// registrationDraftFromDomain never echoes password fields.
func registrationDraftFromDomain(d domain.RegistrationDraft) RegistrationDraft {
	return RegistrationDraft{
		Name:    d.Name,
		Email:   d.Email,
		Gender:  d.Gender,
		State:   d.State,
		City:    d.City,
		JobRole: d.JobRole,
	}
}

type FieldResult struct {
	Valid     bool    `json:"valid"`
	Violation *string `json:"violation,omitempty"`
	Message   string  `json:"message,omitempty"`
}

type PasswordStrength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

type RegistrationValidation struct {
	Fields     map[string]FieldResult `json:"fields"`
	Strength   PasswordStrength       `json:"strength"`
	StateKnown bool                   `json:"stateKnown"`
	CanSubmit  bool                   `json:"canSubmit"`
}

func registrationValidationFromDomain(v domain.ValidatedRegistration) RegistrationValidation {
	inline := v.InlineErrors()
	fields := map[string]FieldResult{}
	add := func(name string, why domain.Violation) {
		fr := FieldResult{Valid: why == domain.ViolationNone, Message: inline[name]}
		if why != domain.ViolationNone {
			s := string(why)
			fr.Violation = &s
		}
		fields[name] = fr
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

	return RegistrationValidation{
		Fields:     fields,
		Strength:   PasswordStrength{Score: v.Strength, Label: v.StrengthLabel},
		StateKnown: v.StateKnown,
		CanSubmit:  v.CanSubmit(),
	}
}

type Notification struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Summary  string `json:"summary,omitempty"`
	Detail   string `json:"detail"`
}

func notificationFromDomain(n domain.Notification) Notification {
	return Notification{
		Severity: string(n.Severity),
		Kind:     string(n.Kind),
		Summary:  n.Summary,
		Detail:   n.Detail,
	}
}

type Redirect struct {
	Path    string    `json:"path"`
	DelayMs int64     `json:"delayMs"`
	At      time.Time `json:"at"`
}

type RegistrationSubmitResponse struct {
	Registered   bool         `json:"registered"`
	RemoteStatus int          `json:"remoteStatus,omitempty"`
	Notification Notification `json:"notification"`
	Redirect     *Redirect    `json:"redirect,omitempty"`
}

func registrationSubmitFromApp(r registration.SubmitResult) RegistrationSubmitResponse {
	out := RegistrationSubmitResponse{
		Registered:   r.Registered,
		RemoteStatus: r.RemoteStatus,
		Notification: notificationFromDomain(r.Notification),
	}
	if r.Redirect != nil {
		out.Redirect = &Redirect{
			Path:    r.Redirect.Path,
			DelayMs: r.Redirect.Delay.Milliseconds(),
			At:      r.Redirect.At,
		}
	}
	return out
}

type ContactDraft struct {
	Name    string `json:"name" validate:"max=256"`
	Email   string `json:"email" validate:"max=320"`
	Message string `json:"message" validate:"max=5000"`
}

type ContactMessage struct {
	MessageId openapi_types.UUID `json:"messageId"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"createdAt"`
}

func contactMessageFromDomain(m domain.ContactMessage) ContactMessage {
	var id openapi_types.UUID
	_ = id.UnmarshalText([]byte(m.ID))
	return ContactMessage{
		MessageId: id,
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

type ContactSubmitResponse struct {
	Accepted     bool            `json:"accepted"`
	Notification Notification    `json:"notification"`
	Message      *ContactMessage `json:"message,omitempty"`
	VisibleUntil *time.Time      `json:"visibleUntil,omitempty"`
}

func contactSubmitFromApp(r contact.SubmitResult) ContactSubmitResponse {
	out := ContactSubmitResponse{
		Accepted:     r.Accepted,
		Notification: notificationFromDomain(r.Notification),
	}
	if r.Message != nil {
		m := contactMessageFromDomain(*r.Message)
		out.Message = &m
		until := r.VisibleUntil
		out.VisibleUntil = &until
	}
	return out
}

type ContactConfirmation struct {
	Visible      bool          `json:"visible"`
	Notification *Notification `json:"notification,omitempty"`
	VisibleUntil *time.Time    `json:"visibleUntil,omitempty"`
}

type ContactMessageList struct {
	Messages []ContactMessage `json:"messages"`
}

// ProfilePatch distinguishes omitted fields from explicit nulls.
type ProfilePatch struct {
	Name        nullable.Nullable[string] `json:"name,omitempty"`
	Email       nullable.Nullable[string] `json:"email,omitempty"`
	PhoneNumber nullable.Nullable[string] `json:"phoneNumber,omitempty"`
	Address     nullable.Nullable[string] `json:"address,omitempty"`
	Gender      nullable.Nullable[string] `json:"gender,omitempty"`
	Occupation  nullable.Nullable[string] `json:"occupation,omitempty"`
	EmployeeId  nullable.Nullable[string] `json:"employeeId,omitempty"`
}

// profilePatchRules are applied to specified, non-null ProfilePatch values.
var profilePatchRules = map[string]string{
	"name":        "max=256",
	"email":       "max=320",
	"phoneNumber": "max=64",
	"address":     "max=512",
	"gender":      "oneof=Male Female Other",
	"occupation":  "max=256",
	"employeeId":  "max=64",
}

func (p ProfilePatch) fields() map[string]nullable.Nullable[string] {
	return map[string]nullable.Nullable[string]{
		"name":        p.Name,
		"email":       p.Email,
		"phoneNumber": p.PhoneNumber,
		"address":     p.Address,
		"gender":      p.Gender,
		"occupation":  p.Occupation,
		"employeeId":  p.EmployeeId,
	}
}

func (p ProfilePatch) toApp() profile.Patch {
	return profile.Patch{
		Name:        optionalFromNullable(p.Name),
		Email:       optionalFromNullable(p.Email),
		PhoneNumber: optionalFromNullable(p.PhoneNumber),
		Address:     optionalFromNullable(p.Address),
		Gender:      optionalFromNullable(p.Gender),
		Occupation:  optionalFromNullable(p.Occupation),
		EmployeeID:  optionalFromNullable(p.EmployeeId),
	}
}

func optionalFromNullable[T any](n nullable.Nullable[T]) profile.Optional[T] {
	if !n.IsSpecified() {
		return profile.Unspecified[T]()
	}
	if n.IsNull() {
		return profile.Null[T]()
	}
	v, _ := n.Get()
	return profile.Some(v)
}

type ProfileFields struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Gender      string `json:"gender"`
	Occupation  string `json:"occupation"`
	EmployeeId  string `json:"employeeId"`
}

type Profile struct {
	ProfileId openapi_types.UUID `json:"profileId"`
	ProfileFields
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProfileEditor struct {
	Profile  Profile        `json:"profile"`
	EditMode bool           `json:"editMode"`
	Dirty    bool           `json:"dirty"`
	Pending  *ProfileFields `json:"pending,omitempty"`
}

type ProfileSaveResponse struct {
	Saved        bool          `json:"saved"`
	Editor       ProfileEditor `json:"editor"`
	Notification Notification  `json:"notification"`
}

func profileFieldsFromDomain(f domain.ProfileFields) ProfileFields {
	return ProfileFields{
		Name:        f.Name,
		Email:       f.Email,
		PhoneNumber: f.PhoneNumber,
		Address:     f.Address,
		Gender:      f.Gender,
		Occupation:  f.Occupation,
		EmployeeId:  f.EmployeeID,
	}
}

func profileEditorFromApp(e profile.Editor) ProfileEditor {
	var id openapi_types.UUID
	_ = id.UnmarshalText([]byte(e.Profile.ID))
	out := ProfileEditor{
		Profile: Profile{
			ProfileId:     id,
			ProfileFields: profileFieldsFromDomain(e.Profile.ProfileFields),
			Version:       e.Profile.Version,
			UpdatedAt:     e.Profile.UpdatedAt,
		},
		EditMode: e.EditMode,
		Dirty:    e.Dirty,
	}
	if e.Pending != nil {
		p := profileFieldsFromDomain(*e.Pending)
		out.Pending = &p
	}
	return out
}

package domain

import (
	"regexp"
	"time"
)

// SiteCodes are the office prefixes accepted in an employee identifier.
var SiteCodes = []string{"hyd", "cbe", "bmb", "chn", "dlh"}

var (
	employeeIDRe      = regexp.MustCompile(`^(hyd|cbe|bmb|chn|dlh)\d{6}$`)
	employeeIDShapeRe = regexp.MustCompile(`^[a-z]{3}\d{6}$`)
)

// ProfileFields is the editable part of a profile.
type ProfileFields struct {
	Name        string
	Email       string
	PhoneNumber string
	Address     string
	Gender      string // Male|Female|Other
	Occupation  string
	EmployeeID  string
}

// ProfileRecord is the committed profile for a subject.
type ProfileRecord struct {
	ID      ProfileID
	Subject SubjectID

	ProfileFields

	// Version increments on every commit and guards concurrent saves.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaceholderProfile is the record every subject starts with.
func PlaceholderProfile() ProfileFields {
	return ProfileFields{
		Name:        "John Doe",
		Email:       "john.doe@example.com",
		PhoneNumber: "1234567890",
		Address:     "123 Main St, Cityville",
		Gender:      "Male",
		Occupation:  "Software Engineer",
		EmployeeID:  "hyd123456",
	}
}

// ValidateEmployeeID accepts a known three-letter site code followed by six digits.
func ValidateEmployeeID(s string) FieldResult[string] {
	switch {
	case s == "":
		return invalid(s, ViolationRequired)
	case employeeIDRe.MatchString(s):
		return valid(s)
	case employeeIDShapeRe.MatchString(s):
		return invalid(s, ViolationUnknownSiteCode)
	}
	return invalid(s, ViolationBadFormat)
}

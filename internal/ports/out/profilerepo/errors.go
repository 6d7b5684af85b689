package profilerepo

import "errors"

var (
	// ErrNotFound indicates no profile exists for the subject.
	ErrNotFound = errors.New("profile not found")

	// ErrAlreadyExists indicates a profile already exists for the subject.
	ErrAlreadyExists = errors.New("profile already exists")

	// ErrVersionConflict indicates the stored profile changed since it was read.
	ErrVersionConflict = errors.New("profile version conflict")
)

package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// ProfileID is an internal identifier for a profile record.
type ProfileID string

// ContactMessageID is an internal identifier for a persisted contact message.
type ContactMessageID string

package domain

import "time"

// ContactMessageMinLength is the minimum trimmed length of a contact message.
const ContactMessageMinLength = 10

// ContactThanks is the confirmation shown after a contact draft is accepted.
const ContactThanks = "Thank you for reaching out. We'll be in contact shortly!"

// ContactDraft holds raw contact form values.
type ContactDraft struct {
	Name    string
	Email   string
	Message string
}

// ContactMessage is a submitted contact draft.
type ContactMessage struct {
	ID      ContactMessageID
	Subject SubjectID

	Name    string
	Email   string
	Message string

	CreatedAt time.Time
}

// CheckContact applies the contact form rules in order and returns the first
// rejection. ok is true when the draft may be submitted.
func CheckContact(d ContactDraft) (rejection Notification, ok bool) {
	if trimJS(d.Name) == "" || trimJS(d.Email) == "" || trimJS(d.Message) == "" {
		return Alert(SeverityError, "Please fill in all fields"), false
	}
	if !ValidateEmail(d.Email).Valid() {
		return Toast(SeverityError, "Invalid email", "Please enter a valid email address"), false
	}
	if jsLength(trimJS(d.Message)) < ContactMessageMinLength {
		return Toast(SeverityError, "Message too short", "Message should be at least 10 characters long"), false
	}
	return Notification{}, true
}

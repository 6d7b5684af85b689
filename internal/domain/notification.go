package domain

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// NotificationKind describes how a client is expected to surface a notification.
type NotificationKind string

const (
	// NotificationToast is transient and non-blocking.
	NotificationToast NotificationKind = "toast"
	// NotificationAlert blocks until acknowledged.
	NotificationAlert NotificationKind = "alert"
	// NotificationBanner is shown for a fixed window and dismissed without user action.
	NotificationBanner NotificationKind = "banner"
)

// Notification is the user-facing outcome of a form action.
type Notification struct {
	Severity Severity
	Kind     NotificationKind
	Summary  string
	Detail   string
}

func Toast(sev Severity, summary, detail string) Notification {
	return Notification{Severity: sev, Kind: NotificationToast, Summary: summary, Detail: detail}
}

func Alert(sev Severity, detail string) Notification {
	return Notification{Severity: sev, Kind: NotificationAlert, Detail: detail}
}

func Banner(sev Severity, detail string) Notification {
	return Notification{Severity: sev, Kind: NotificationBanner, Detail: detail}
}

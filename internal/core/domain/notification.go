package domain

import "time"

// NotificationKind drives how a notification is rendered.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationTask    NotificationKind = "task"
)

// Notification is a per-user record produced in reaction to a domain event.
// Only IsRead ever changes after creation.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	RelatedID string           `json:"related_id,omitempty"`
}

package models

import "time"

type NotificationType string

const (
	NotificationCreate NotificationType = "CREATE"
	NotificationUpdate NotificationType = "UPDATE"
	NotificationDelete NotificationType = "DELETE"
)

// Notification announces a committed change to every subscriber.
// Task is set for CREATE and UPDATE, TaskID for DELETE.
type Notification struct {
	Type      NotificationType `json:"type"`
	Task      *Task            `json:"task,omitempty"`
	TaskID    *int64           `json:"taskId,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Package events holds the lifecycle messages published on the events queue.
package events

import "time"

const (
	UserCreated     = "user.created"
	UserUpdated     = "user.updated"
	UserDeactivated = "user.deactivated"
)

// UserEvent is the JSON body of every message on the events queue.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Known reports whether t is one of the event types above.
func Known(t string) bool {
	switch t {
	case UserCreated, UserUpdated, UserDeactivated:
		return true
	}
	return false
}

package models

import "time"

// SupportStatus represents the processing state of a support request
type SupportStatus string

const (
	SupportPending   SupportStatus = "pending"
	SupportCompleted SupportStatus = "completed"
)

// Valid reports whether s is a status an admin may set
func (s SupportStatus) Valid() bool {
	return s == SupportPending || s == SupportCompleted
}

// SupportRequest is a message left through the contact form
type SupportRequest struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Contact     string        `json:"contact"`
	ContactType string        `json:"contact_type,omitempty"` // email | phone | telegram
	Message     string        `json:"message"`
	Status      SupportStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

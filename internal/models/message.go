package models

import "time"

// MessageLevel represents valid admin message levels
type MessageLevel string

const (
	MessageLevelInfo        MessageLevel = "info"
	MessageLevelError       MessageLevel = "error"
	MessageLevelSystemError MessageLevel = "system-error"
)

// Message is a user-facing notice shown on the next page render
type Message struct {
	Level       MessageLevel `json:"level"`
	Primary     string       `json:"primary_content"`
	Secondary   *string      `json:"secondary_content,omitempty"`
	ContentType string       `json:"content_type"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewMessage creates a plain text message
func NewMessage(level MessageLevel, primary string) *Message {
	return &Message{
		Level:       level,
		Primary:     primary,
		ContentType: "text/plain",
		CreatedAt:   time.Now().UTC(),
	}
}

// WithSecondary attaches secondary content and its content type
func (m *Message) WithSecondary(content, contentType string) *Message {
	m.Secondary = &content
	m.ContentType = contentType
	return m
}

// FaultKind classifies caught synchronization faults
type FaultKind string

const (
	FaultKindConnection FaultKind = "connection"
	FaultKindOther      FaultKind = "other"
)

// SyncFault is an ESP synchronization failure kept for operational review
type SyncFault struct {
	ID           string    `json:"id" db:"id"`
	NewsletterID *int      `json:"newsletter_id,omitempty" db:"newsletter_id"`
	Kind         FaultKind `json:"kind" db:"kind"`
	Error        string    `json:"error" db:"error"`
	OccurredAt   time.Time `json:"occurred_at" db:"occurred_at"`
}

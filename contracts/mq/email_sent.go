package mq

import "time"

const (
	RoutingKeyEmailSent     = "email.sent"
	RoutingKeyMailboxUnread = "mailbox.unread"
)

// EmailSentPayload is published after a non-draft email is persisted.
type EmailSentPayload struct {
	EmailID        int       `json:"email_id"`
	SenderID       int       `json:"sender_id"`
	ReceiverID     int       `json:"receiver_id"`
	SenderName     string    `json:"sender_name"`
	SenderInitials string    `json:"sender_initials"`
	SenderEmail    string    `json:"sender_email"`
	Subject        string    `json:"subject"`
	Preview        string    `json:"preview"`
	Summary        string    `json:"summary,omitempty"`
	CategoryName   string    `json:"category_name,omitempty"`
	CategoryColor  string    `json:"category_color,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}

// UnreadCountPayload carries a receiver's current unread count.
type UnreadCountPayload struct {
	UserID int `json:"user_id"`
	Count  int `json:"count"`
}

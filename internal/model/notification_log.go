package model

import "time"

type NotificationLog struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	EmailID   int       `json:"email_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

package model

// Push frame types sent over the realtime channel.
const (
	PushNewEmail    = "new_email"
	PushUnreadCount = "unread_count"
	PushToast       = "toast"
)

// Notification is one realtime frame delivered to a connected user.
type Notification struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Toast struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

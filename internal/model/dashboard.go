package model

import "time"

type DailyCount struct {
	Date     string `json:"date"`  // yyyy-mm-dd
	Label    string `json:"label"` // weekday, e.g. "Mon"
	Received int    `json:"received"`
	Sent     int    `json:"sent"`
}

type CategoryStat struct {
	CategoryID int     `json:"category_id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Icon       string  `json:"icon"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type RecentEmail struct {
	ID             int       `json:"id"`
	Subject        string    `json:"subject"`
	Preview        string    `json:"preview"`
	Sender         Party     `json:"sender"`
	SenderInitials string    `json:"sender_initials"`
	IsRead         bool      `json:"is_read"`
	IsStarred      bool      `json:"is_starred"`
	CategoryColor  string    `json:"category_color"`
	CreatedAt      time.Time `json:"created_at"`
}

type Dashboard struct {
	TotalEmails   int `json:"total_emails"`
	TotalReceived int `json:"total_received"`
	TotalSent     int `json:"total_sent"`
	Unread        int `json:"unread"`
	Starred       int `json:"starred"`
	Drafts        int `json:"drafts"`

	ReceivedThisWeek      int     `json:"received_this_week"`
	ReceivedLastWeek      int     `json:"received_last_week"`
	SentThisWeek          int     `json:"sent_this_week"`
	SentLastWeek          int     `json:"sent_last_week"`
	ReceivedChangePercent float64 `json:"received_change_percent"`
	SentChangePercent     float64 `json:"sent_change_percent"`

	Last7Days  []DailyCount   `json:"last_7_days"`
	Categories []CategoryStat `json:"categories"`
	Recent     []RecentEmail  `json:"recent"`
}

// Activity is one line of a user's recent mail history.
type Activity struct {
	EmailID   int       `json:"email_id"`
	Outgoing  bool      `json:"outgoing"`
	Partner   Party     `json:"partner"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	User           User       `json:"user"`
	SentCount      int        `json:"sent_count"`
	ReceivedCount  int        `json:"received_count"`
	StarredCount   int        `json:"starred_count"`
	ReadCount      int        `json:"read_count"`
	ReadRate       float64    `json:"read_rate"`
	RecentActivity []Activity `json:"recent_activity"`
}

// UserTotals are the per-user counters shared by dashboard and profile.
// Received and Sent exclude drafts and mail the user deleted.
type UserTotals struct {
	Received     int
	Sent         int
	Unread       int
	Starred      int
	Drafts       int
	ReadReceived int
}
